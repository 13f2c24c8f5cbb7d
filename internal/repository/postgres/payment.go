package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return insertPayment(ctx, r.db, p)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertPayment(ctx context.Context, db execer, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, amount, currency, payment_method, payment_status, feature_id,
		                      provider_payment_id, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8, $9, $10)`

	_, err := db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Amount,
		p.Currency,
		p.PaymentMethod,
		p.Status,
		p.FeatureID,
		p.ProviderPaymentID,
		p.FailureReason,
		p.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "feature_id") {
				return apperrors.NotFound("premium feature", p.FeatureID)
			}
			return apperrors.NotFound("user", p.UserID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	query := `
		SELECT id, user_id, amount, currency, payment_method, payment_status, COALESCE(feature_id::text, ''),
		       COALESCE(provider_payment_id, ''), COALESCE(failure_reason, ''), created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Status,
			&p.FeatureID, &p.ProviderPaymentID, &p.FailureReason, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// PaymentMethodRepository implements repository.PaymentMethodRepository using PostgreSQL.
type PaymentMethodRepository struct {
	db database.DBTX
}

// NewPaymentMethodRepository creates a new PostgreSQL-backed payment method repository.
func NewPaymentMethodRepository(db database.DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

const paymentMethodColumns = `id, user_id, type, provider_id, last_four, expiry_month, expiry_year, is_default, created_at`

// ListByUser returns the default method first, then the newest.
func (r *PaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentMethodColumns+`
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query payment methods: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PaymentMethod, 0)
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment methods: %w", err)
	}
	return out, nil
}

// Create inserts the method, unsetting the previous default when the new
// one is the default.
func (r *PaymentMethodRepository) Create(ctx context.Context, m *domain.PaymentMethod) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if m.IsDefault {
			_, err := tx.Exec(ctx, `
				UPDATE payment_methods SET is_default = false, updated_at = $1
				WHERE user_id = $2 AND is_default = true`,
				m.CreatedAt, m.UserID,
			)
			if err != nil {
				return fmt.Errorf("unset default payment method: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO payment_methods (id, user_id, type, provider_id, last_four, expiry_month, expiry_year, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			m.ID, m.UserID, m.Type, m.ProviderID, m.LastFour, m.ExpiryMonth, m.ExpiryYear, m.IsDefault, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment method: %w", err)
		}
		return nil
	})
}

// GetForUser returns the method when it belongs to userID.
func (r *PaymentMethodRepository) GetForUser(ctx context.Context, id, userID string) (*domain.PaymentMethod, error) {
	m, err := scanPaymentMethod(r.db.QueryRow(ctx,
		`SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment method", id)
		}
		return nil, fmt.Errorf("scan payment method: %w", err)
	}
	return m, nil
}

// Delete removes the method when it belongs to userID.
func (r *PaymentMethodRepository) Delete(ctx context.Context, id, userID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment method", id)
	}
	return nil
}

// CountByUser counts the user's stored methods.
func (r *PaymentMethodRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payment_methods WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payment methods: %w", err)
	}
	return n, nil
}

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := row.Scan(&m.ID, &m.UserID, &m.Type, &m.ProviderID, &m.LastFour, &m.ExpiryMonth, &m.ExpiryYear, &m.IsDefault, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InvoiceRepository implements repository.InvoiceRepository using PostgreSQL.
type InvoiceRepository struct {
	db database.DBTX
}

// NewInvoiceRepository creates a new PostgreSQL-backed invoice repository.
func NewInvoiceRepository(db database.DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `i.id, i.user_id, i.subscription_id, s.plan_id, i.amount, i.currency, i.status,
	i.invoice_date, i.due_date, COALESCE(i.pdf_url, '')`

// List returns the user's invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, userID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN subscriptions s ON s.id = i.subscription_id
		WHERE i.user_id = $1`)
	args := []any{userID}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		b.WriteString(` AND i.invoice_date >= $` + strconv.Itoa(len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		b.WriteString(` AND i.invoice_date <= $` + strconv.Itoa(len(args)))
	}
	b.WriteString(` ORDER BY i.invoice_date DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

// GetForUser returns the invoice when it belongs to userID.
func (r *InvoiceRepository) GetForUser(ctx context.Context, id, userID string) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN subscriptions s ON s.id = i.subscription_id
		WHERE i.id = $1 AND i.user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("invoice", id)
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return inv, nil
}

// SetPDFURL stores the document url of an invoice.
func (r *InvoiceRepository) SetPDFURL(ctx context.Context, id, url string) error {
	if _, err := r.db.Exec(ctx, `UPDATE invoices SET pdf_url = $1 WHERE id = $2`, url, id); err != nil {
		return fmt.Errorf("update invoice pdf url: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.SubscriptionID, &inv.PlanID, &inv.Amount, &inv.Currency,
		&inv.Status, &inv.InvoiceDate, &inv.DueDate, &inv.PDFURL,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
