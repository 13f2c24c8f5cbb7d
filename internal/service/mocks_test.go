package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/MichaelKMarwa/recupio/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockUserRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockUserRepository) IsPremium(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) UpgradeToPremium(ctx context.Context, userID string, payment *domain.Payment) error {
	args := m.Called(ctx, userID, payment)
	return args.Error(0)
}

func (m *mockUserRepository) GetPreferences(ctx context.Context, userID string) (json.RawMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockUserRepository) SavePreferences(ctx context.Context, userID string, prefs json.RawMessage) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

// --- Mock Guest Session Repository ---

type mockGuestRepository struct {
	mock.Mock
}

func (m *mockGuestRepository) Create(ctx context.Context, session *domain.GuestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockGuestRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuestSession), args.Error(1)
}

func (m *mockGuestRepository) TouchLastAccessed(ctx context.Context, sessionID string, at time.Time) error {
	args := m.Called(ctx, sessionID, at)
	return args.Error(0)
}

func (m *mockGuestRepository) SavePreferences(ctx context.Context, prefs *domain.GuestPreferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *mockGuestRepository) GetPreferences(ctx context.Context, sessionID string) (*domain.GuestPreferences, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuestPreferences), args.Error(1)
}

// --- Mock Password Reset Repository ---

type mockResetRepository struct {
	mock.Mock
}

func (m *mockResetRepository) InvalidateActive(ctx context.Context, userID string, now time.Time) error {
	args := m.Called(ctx, userID, now)
	return args.Error(0)
}

func (m *mockResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockResetRepository) GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *mockResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string, now time.Time) error {
	args := m.Called(ctx, tokenID, userID, passwordHash, now)
	return args.Error(0)
}

// --- Mock Facility Repository ---

type mockFacilityRepository struct {
	mock.Mock
}

func (m *mockFacilityRepository) List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Facility), args.Int(1), args.Error(2)
}

func (m *mockFacilityRepository) GetByID(ctx context.Context, id string) (*domain.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Facility), args.Error(1)
}

func (m *mockFacilityRepository) Search(ctx context.Context, q, facilityType, zipCode string) ([]domain.Facility, error) {
	args := m.Called(ctx, q, facilityType, zipCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Facility), args.Error(1)
}

func (m *mockFacilityRepository) BestMatch(ctx context.Context, itemIDs []string, zipCode string) (*domain.Facility, int, error) {
	args := m.Called(ctx, itemIDs, zipCode)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.Facility), args.Int(1), args.Error(2)
}

// --- Mock Item Repository ---

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockItemRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockItemRepository) GetCategory(ctx context.Context, id string) (*domain.CategoryWithItems, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategoryWithItems), args.Error(1)
}

func (m *mockItemRepository) PopularCategories(ctx context.Context, limit int) ([]domain.PopularCategory, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.PopularCategory), args.Error(1)
}

func (m *mockItemRepository) CategoryStats(ctx context.Context, id string) (*domain.CategoryStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CategoryStats), args.Error(1)
}

func (m *mockItemRepository) CarbonOffsets(ctx context.Context, itemIDs []string) (map[string]float64, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

// --- Mock Drop-off Repository ---

type mockDropOffRepository struct {
	mock.Mock
}

func (m *mockDropOffRepository) Create(ctx context.Context, d *domain.DropOff, impact *domain.ImpactMetric) error {
	args := m.Called(ctx, d, impact)
	return args.Error(0)
}

func (m *mockDropOffRepository) GetByID(ctx context.Context, id string) (*domain.DropOff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepository) ListByUser(ctx context.Context, userID string) ([]domain.DropOff, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepository) Recent(ctx context.Context, userID string, limit int) ([]domain.DropOff, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.DropOff), args.Error(1)
}

func (m *mockDropOffRepository) Export(ctx context.Context, userID string, filter domain.ExportFilter) ([]domain.ExportRow, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]domain.ExportRow), args.Error(1)
}

func (m *mockDropOffRepository) TotalValue(ctx context.Context, dropOffID string) (float64, error) {
	args := m.Called(ctx, dropOffID)
	return args.Get(0).(float64), args.Error(1)
}

// --- Mock Receipt Repository ---

type mockReceiptRepository struct {
	mock.Mock
}

func (m *mockReceiptRepository) Create(ctx context.Context, r *domain.TaxReceipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *mockReceiptRepository) ListByUser(ctx context.Context, userID string) ([]domain.TaxReceipt, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.TaxReceipt), args.Error(1)
}

// --- Mock Payment Repositories ---

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPaymentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type mockPaymentMethodRepository struct {
	mock.Mock
}

func (m *mockPaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.PaymentMethod), args.Error(1)
}

func (m *mockPaymentMethodRepository) Create(ctx context.Context, method *domain.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

func (m *mockPaymentMethodRepository) GetForUser(ctx context.Context, id, userID string) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}

func (m *mockPaymentMethodRepository) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *mockPaymentMethodRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) GetActive(ctx context.Context, userID string) (*domain.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) Cancel(ctx context.Context, id, userID string, now time.Time) error {
	args := m.Called(ctx, id, userID, now)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) HasActive(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) List(ctx context.Context, userID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) GetForUser(ctx context.Context, id, userID string) (*domain.Invoice, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) SetPDFURL(ctx context.Context, id, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

// --- Mock Premium Feature Repository ---

type mockPremiumFeatureRepository struct {
	mock.Mock
}

func (m *mockPremiumFeatureRepository) ListActive(ctx context.Context) ([]domain.PremiumFeature, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumFeatureRepository) GetActive(ctx context.Context, id string) (*domain.PremiumFeature, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumFeatureRepository) Activate(ctx context.Context, userID, featureID string, at time.Time) error {
	args := m.Called(ctx, userID, featureID, at)
	return args.Error(0)
}

func (m *mockPremiumFeatureRepository) ListForUser(ctx context.Context, userID string) ([]domain.PremiumFeature, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.PremiumFeature), args.Error(1)
}

func (m *mockPremiumFeatureRepository) Deactivate(ctx context.Context, userID, featureID string) error {
	args := m.Called(ctx, userID, featureID)
	return args.Error(0)
}

// --- Mock Impact Repository ---

type mockImpactRepository struct {
	mock.Mock
}

func (m *mockImpactRepository) UserSummary(ctx context.Context, userID string) (*domain.ImpactSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImpactSummary), args.Error(1)
}

func (m *mockImpactRepository) CommunitySummary(ctx context.Context) (*domain.ImpactSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImpactSummary), args.Error(1)
}
