package domain

import "time"

// Payment status constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment method type constants.
const (
	PaymentMethodCard   = "card"
	PaymentMethodBank   = "bank_account"
	PaymentMethodWallet = "wallet"
)

// Payment is a charge against a user. Amount is in minor currency units.
type Payment struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	PaymentMethod     string    `json:"payment_method"`
	Status            string    `json:"payment_status"`
	FeatureID         string    `json:"feature_id,omitempty"`
	ProviderPaymentID string    `json:"provider_payment_id,omitempty"`
	FailureReason     string    `json:"failure_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ValidPaymentMethodTypes returns all stored payment method types.
func ValidPaymentMethodTypes() []string {
	return []string{PaymentMethodCard, PaymentMethodBank, PaymentMethodWallet}
}

// IsValidPaymentMethodType checks whether t is a known payment method type.
func IsValidPaymentMethodType(t string) bool {
	for _, v := range ValidPaymentMethodTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// PaymentMethod is a stored instrument. ProviderID is the provider's token.
type PaymentMethod struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Type        string    `json:"type"`
	ProviderID  string    `json:"-"`
	LastFour    string    `json:"last_four"`
	ExpiryMonth *int      `json:"expiry_month,omitempty"`
	ExpiryYear  *int      `json:"expiry_year,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invoice is billed against a subscription.
type Invoice struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SubscriptionID string    `json:"subscription_id"`
	PlanID         string    `json:"plan_id,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	InvoiceDate    time.Time `json:"invoice_date"`
	DueDate        time.Time `json:"due_date"`
	PDFURL         string    `json:"pdf_url,omitempty"`
}

// InvoiceFilter narrows an invoice listing. Limit 0 means no limit.
type InvoiceFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
