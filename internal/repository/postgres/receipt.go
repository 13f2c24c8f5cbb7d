package postgres

import (
	"context"
	"fmt"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// ReceiptRepository implements repository.ReceiptRepository using PostgreSQL.
type ReceiptRepository struct {
	db database.DBTX
}

// NewReceiptRepository creates a new PostgreSQL-backed receipt repository.
func NewReceiptRepository(db database.DBTX) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create inserts a tax receipt.
func (r *ReceiptRepository) Create(ctx context.Context, t *domain.TaxReceipt) error {
	query := `
		INSERT INTO tax_receipts (id, drop_off_id, user_id, receipt_number, receipt_date, tax_year, total_value, receipt_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.DropOffID,
		t.UserID,
		t.ReceiptNumber,
		t.ReceiptDate,
		t.TaxYear,
		t.TotalValue,
		t.ReceiptURL,
		t.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("tax receipt", "receipt_number", t.ReceiptNumber)
		}
		return fmt.Errorf("insert tax receipt: %w", err)
	}
	return nil
}

// ListByUser returns the user's receipts, newest first.
func (r *ReceiptRepository) ListByUser(ctx context.Context, userID string) ([]domain.TaxReceipt, error) {
	query := `
		SELECT id, drop_off_id, user_id, receipt_number, receipt_date, tax_year, total_value::float8, receipt_url, created_at
		FROM tax_receipts
		WHERE user_id = $1
		ORDER BY receipt_date DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tax receipts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TaxReceipt, 0)
	for rows.Next() {
		var t domain.TaxReceipt
		if err := rows.Scan(
			&t.ID, &t.DropOffID, &t.UserID, &t.ReceiptNumber, &t.ReceiptDate,
			&t.TaxYear, &t.TotalValue, &t.ReceiptURL, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tax receipt: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax receipts: %w", err)
	}
	return out, nil
}
