package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/telemetry"
)

// maxConcurrentOCR bounds in-flight calls to the OCR service.
const maxConcurrentOCR = 3

// ReceiptService validates, stores and extracts uploaded receipts.
type ReceiptService struct {
	ocr     receipt.OCR
	images  receipt.ImageStore
	metrics *telemetry.Metrics
	logger  *slog.Logger
	ocrSem  chan struct{}
}

func NewReceiptService(ocr receipt.OCR, images receipt.ImageStore, metrics *telemetry.Metrics, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{
		ocr:     ocr,
		images:  images,
		metrics: metrics,
		logger:  logger,
		ocrSem:  make(chan struct{}, maxConcurrentOCR),
	}
}

// Upload processes one receipt image. Invalid uploads and storage failures are
// errors; a failed extraction is not, it yields a scan with ConfidenceError so the
// user can enter the expense manually.
func (s *ReceiptService) Upload(ctx context.Context, caller Caller, filename string, data []byte) (*models.ReceiptScan, error) {
	img, err := receipt.Validate(data)
	if err != nil {
		s.logger.Warn("Rejected receipt upload", "user", caller.Email, "filename", filename, "size", len(data), "error", err)
		switch {
		case errors.Is(err, receipt.ErrImageTooLarge):
			return nil, newError(ErrTooLarge, "%s", receipt.ErrImageTooLarge.Error())
		case errors.Is(err, receipt.ErrUnsupportedType):
			return nil, newError(ErrUnsupportedMedia, "Invalid file type. Allowed: %s", strings.Join(receipt.AllowedTypes, ", "))
		default:
			return nil, newError(ErrInvalidArgument, "%s", err.Error())
		}
	}

	url, err := s.images.Save(ctx, caller.Email, img)
	if err != nil {
		s.logger.Error("Failed to store receipt", "user", caller.Email, "error", err)
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	s.logger.Info("Receipt stored", "user", caller.Email, "url", url, "type", img.MIME)

	text, err := s.extract(ctx, img.Data)
	var scan *models.ReceiptScan
	if err != nil {
		s.logger.Warn("Receipt text extraction failed", "url", url, "error", err)
		scan = receipt.ErrorScan(err)
	} else {
		scan = receipt.Parse(text)
	}
	scan.ReceiptURL = url
	s.metrics.ReceiptScanned(scan.Confidence)

	s.logger.Info("Receipt processed",
		"user", caller.Email,
		"merchant", scan.Merchant,
		"total", scan.Total,
		"items", len(scan.Items),
		"confidence", scan.Confidence,
	)
	return scan, nil
}

func (s *ReceiptService) extract(ctx context.Context, image []byte) (string, error) {
	select {
	case s.ocrSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.ocrSem }()

	return s.ocr.ExtractText(ctx, image)
}
