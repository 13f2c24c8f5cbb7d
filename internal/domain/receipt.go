package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TaxReceipt documents the value of a drop-off for tax purposes.
type TaxReceipt struct {
	ID            string    `json:"id"`
	DropOffID     string    `json:"drop_off_id"`
	UserID        string    `json:"user_id"`
	ReceiptNumber string    `json:"receipt_number"`
	ReceiptDate   time.Time `json:"receipt_date"`
	TaxYear       int       `json:"tax_year"`
	TotalValue    float64   `json:"total_value"`
	ReceiptURL    string    `json:"receipt_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewReceiptNumber returns a receipt number of the form RCPT-<year>-<8 hex>.
func NewReceiptNumber(now time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate receipt number: %w", err)
	}
	return fmt.Sprintf("RCPT-%d-%s", now.Year(), hex.EncodeToString(b)), nil
}
