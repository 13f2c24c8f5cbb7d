package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelKMarwa/recupio/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// Implementations never expose a user's password hash outside the
// returned domain.User, which omits it from serialization.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// TouchLastLogin stamps last_login and last_activity.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// TouchActivity stamps last_activity.
	TouchActivity(ctx context.Context, id string, at time.Time) error

	// IsPremium reads the user's premium flag.
	IsPremium(ctx context.Context, id string) (bool, error)

	// UpgradeToPremium sets role and premium flag and records the payment,
	// all in one transaction.
	UpgradeToPremium(ctx context.Context, userID string, payment *domain.Payment) error

	// GetPreferences returns the user's preference document, or an empty
	// object when none was saved.
	GetPreferences(ctx context.Context, userID string) (json.RawMessage, error)

	// SavePreferences replaces the user's preference document.
	SavePreferences(ctx context.Context, userID string, prefs json.RawMessage) error
}

// GuestSessionRepository persists guest sessions and their preferences.
type GuestSessionRepository interface {
	Create(ctx context.Context, session *domain.GuestSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.GuestSession, error)
	TouchLastAccessed(ctx context.Context, sessionID string, at time.Time) error
	SavePreferences(ctx context.Context, prefs *domain.GuestPreferences) error
	GetPreferences(ctx context.Context, sessionID string) (*domain.GuestPreferences, error)
}

// PasswordResetRepository persists single-use password reset tokens.
type PasswordResetRepository interface {
	// InvalidateActive marks every unused, unexpired token of the user used.
	InvalidateActive(ctx context.Context, userID string, now time.Time) error

	// Create stores a new token.
	Create(ctx context.Context, token *domain.PasswordResetToken) error

	// GetActive returns the token if it is unused and unexpired at now.
	GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error)

	// Consume marks the token used and replaces the owner's password hash
	// in one transaction. A token consumed concurrently yields
	// ErrInvalidArgument; a missing owner yields ErrNotFound.
	Consume(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error
}

// FacilityRepository reads the facility directory.
type FacilityRepository interface {
	// List returns one page of facilities matching filter and the total count.
	List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, int, error)

	// GetByID returns a facility with its hours and accepted item ids.
	GetByID(ctx context.Context, id string) (*domain.Facility, error)

	// Search matches q against facility names and addresses.
	Search(ctx context.Context, q, facilityType, zipCode string) ([]domain.Facility, error)

	// BestMatch returns the facility accepting the most of itemIDs and how
	// many it accepts.
	BestMatch(ctx context.Context, itemIDs []string, zipCode string) (*domain.Facility, int, error)
}

// ItemRepository reads the item catalogue.
type ItemRepository interface {
	List(ctx context.Context) ([]domain.Item, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.CategoryWithItems, error)
	PopularCategories(ctx context.Context, limit int) ([]domain.PopularCategory, error)
	CategoryStats(ctx context.Context, id string) (*domain.CategoryStats, error)

	// CarbonOffsets returns the per-unit carbon offset of each known item id.
	CarbonOffsets(ctx context.Context, itemIDs []string) (map[string]float64, error)
}

// DropOffRepository persists drop-offs and their impact.
type DropOffRepository interface {
	// Create inserts the drop-off, its items and its impact row in one
	// transaction.
	Create(ctx context.Context, dropOff *domain.DropOff, impact *domain.ImpactMetric) error

	// GetByID returns a drop-off with its items.
	GetByID(ctx context.Context, id string) (*domain.DropOff, error)

	ListByUser(ctx context.Context, userID string) ([]domain.DropOff, error)

	// Recent returns the user's latest drop-offs with their items.
	Recent(ctx context.Context, userID string, limit int) ([]domain.DropOff, error)

	Export(ctx context.Context, userID string, filter domain.ExportFilter) ([]domain.ExportRow, error)

	// TotalValue sums the estimated value of the drop-off's items.
	TotalValue(ctx context.Context, dropOffID string) (float64, error)
}

// ReceiptRepository persists tax receipts.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.TaxReceipt) error
	ListByUser(ctx context.Context, userID string) ([]domain.TaxReceipt, error)
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
}

// PaymentMethodRepository persists stored payment instruments.
type PaymentMethodRepository interface {
	// ListByUser returns the default method first, then newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error)

	// Create inserts the method. When it is the default, the previous
	// default is unset in the same transaction.
	Create(ctx context.Context, method *domain.PaymentMethod) error

	GetForUser(ctx context.Context, id, userID string) (*domain.PaymentMethod, error)
	Delete(ctx context.Context, id, userID string) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

// SubscriptionRepository persists premium subscriptions.
type SubscriptionRepository interface {
	// Create inserts the subscription and sets the user's premium flag in
	// one transaction.
	Create(ctx context.Context, sub *domain.Subscription) error

	// GetActive returns the user's active subscription with its activated
	// features.
	GetActive(ctx context.Context, userID string) (*domain.Subscription, error)

	// Cancel marks the subscription canceled at period end and clears the
	// user's premium flag in one transaction.
	Cancel(ctx context.Context, id, userID string, now time.Time) error

	HasActive(ctx context.Context, userID string) (bool, error)
}

// InvoiceRepository reads subscription invoices.
type InvoiceRepository interface {
	List(ctx context.Context, userID string, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	GetForUser(ctx context.Context, id, userID string) (*domain.Invoice, error)
	SetPDFURL(ctx context.Context, id, url string) error
}

// PremiumFeatureRepository persists premium features and their activation.
type PremiumFeatureRepository interface {
	ListActive(ctx context.Context) ([]domain.PremiumFeature, error)
	GetActive(ctx context.Context, id string) (*domain.PremiumFeature, error)

	// Activate is idempotent.
	Activate(ctx context.Context, userID, featureID string, at time.Time) error
	ListForUser(ctx context.Context, userID string) ([]domain.PremiumFeature, error)
	Deactivate(ctx context.Context, userID, featureID string) error
}

// ImpactRepository aggregates impact metrics.
type ImpactRepository interface {
	UserSummary(ctx context.Context, userID string) (*domain.ImpactSummary, error)
	CommunitySummary(ctx context.Context) (*domain.ImpactSummary, error)
}
