// Package receipt turns uploaded receipt images into structured scans: it validates
// the upload, stores the original, extracts text through an OCR service and parses
// that text into merchant, amounts and line items.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrOCRNotConfigured = errors.New("text extraction is not configured")

// OCR extracts text from image bytes. Callers validate the image first.
type OCR interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// DisabledOCR is used when no OCR service is configured. Every scan falls back to
// manual entry.
type DisabledOCR struct{}

func (DisabledOCR) ExtractText(context.Context, []byte) (string, error) {
	return "", ErrOCRNotConfigured
}

// HTTPOCRConfig configures an HTTPOCR client.
type HTTPOCRConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPOCR calls a Typhoon-style OCR endpoint: a multipart POST carrying the image
// as "file" and the model parameters as "params", answered with a list of page
// results whose first chat choice holds the text.
type HTTPOCR struct {
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ OCR = (*HTTPOCR)(nil)

const DefaultOCRModel = "typhoon-ocr"

func NewHTTPOCR(cfg HTTPOCRConfig, logger *slog.Logger) *HTTPOCR {
	if cfg.Model == "" {
		cfg.Model = DefaultOCRModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPOCR{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type ocrParams struct {
	Model             string  `json:"model"`
	TaskType          string  `json:"task_type"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

type ocrResponse struct {
	Results []struct {
		Success bool `json:"success"`
		Message *struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"message"`
		Error any `json:"error"`
	} `json:"results"`
}

func (o *HTTPOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	body, contentType, err := o.buildRequestBody(image)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("OCR service error: %d - %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}

	var pages []string
	for _, r := range parsed.Results {
		if !r.Success || r.Message == nil || len(r.Message.Choices) == 0 {
			continue
		}
		pages = append(pages, r.Message.Choices[0].Message.Content)
	}
	if len(pages) == 0 {
		return "", errors.New("OCR service returned no text")
	}

	o.logger.Debug("OCR completed", "pages", len(pages), "duration", time.Since(start))
	return strings.Join(pages, "\n"), nil
}

func (o *HTTPOCR) buildRequestBody(image []byte) (io.Reader, string, error) {
	params, err := json.Marshal(ocrParams{
		Model:             o.model,
		TaskType:          "default",
		MaxTokens:         16000,
		Temperature:       0.1,
		TopP:              0.6,
		RepetitionPenalty: 1.2,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode OCR params: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "receipt")
	if err != nil {
		return nil, "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	if err := w.WriteField("params", string(params)); err != nil {
		return nil, "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
