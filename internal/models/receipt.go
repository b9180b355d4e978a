package models

import "github.com/shopspring/decimal"

// Confidence values reported with a receipt scan.
const (
	ConfidenceHigh  = "high"
	ConfidenceLow   = "low"
	ConfidenceError = "error"
)

// ReceiptScan is the data extracted from an uploaded receipt image.
// A failed extraction still yields a scan: zero amounts, ConfidenceError and the
// error text, so the user can fall back to manual entry.
type ReceiptScan struct {
	Merchant   string          `json:"merchant"`
	Total      decimal.Decimal `json:"total"`
	Date       *string         `json:"date"`
	Items      []ReceiptItem   `json:"items"`
	Tax        decimal.Decimal `json:"tax"`
	Tip        decimal.Decimal `json:"tip"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Confidence string          `json:"confidence"`
	Error      string          `json:"error,omitempty"`
	ReceiptURL string          `json:"receipt_url,omitempty"`
}
