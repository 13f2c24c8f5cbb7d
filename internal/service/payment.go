package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/event"
	"github.com/MichaelKMarwa/recupio/internal/provider"
	"github.com/MichaelKMarwa/recupio/internal/receipt"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	"github.com/MichaelKMarwa/recupio/internal/storage"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const maxInvoiceLimit = 100

// PaymentService charges users and manages payment methods and invoices.
type PaymentService struct {
	payments      repository.PaymentRepository
	methods       repository.PaymentMethodRepository
	subscriptions repository.SubscriptionRepository
	invoices      repository.InvoiceRepository
	users         repository.UserRepository
	provider      provider.Provider
	store         storage.Store
	producer      *event.Producer
	logger        *slog.Logger
	now           func() time.Time
}

// PaymentRepos groups the stores the payment service reads and writes.
type PaymentRepos struct {
	Payments      repository.PaymentRepository
	Methods       repository.PaymentMethodRepository
	Subscriptions repository.SubscriptionRepository
	Invoices      repository.InvoiceRepository
	Users         repository.UserRepository
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	repos PaymentRepos,
	p provider.Provider,
	store storage.Store,
	producer *event.Producer,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments:      repos.Payments,
		methods:       repos.Methods,
		subscriptions: repos.Subscriptions,
		invoices:      repos.Invoices,
		users:         repos.Users,
		provider:      p,
		store:         store,
		producer:      producer,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreatePaymentInput holds the parameters for charging a user.
type CreatePaymentInput struct {
	Amount        int64
	Currency      string
	PaymentMethod string
	FeatureID     string
}

// Create charges the identity's user through the provider and records the
// outcome. A declined charge is stored as failed and reported as
// PaymentFailed.
func (s *PaymentService) Create(ctx context.Context, id domain.Identity, input CreatePaymentInput) (*domain.Payment, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.InvalidArgument("amount must be greater than zero")
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	method := input.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCard
	}
	if !domain.IsValidPaymentMethodType(method) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid payment method: %s", method))
	}

	payment := &domain.Payment{
		ID:            uuid.New().String(),
		UserID:        id.UserID,
		Amount:        input.Amount,
		Currency:      currency,
		PaymentMethod: method,
		Status:        domain.PaymentStatusPending,
		FeatureID:     input.FeatureID,
		CreatedAt:     s.now(),
	}

	res, chargeErr := s.provider.Charge(ctx, provider.ChargeRequest{
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentMethod: payment.PaymentMethod,
		Reference:     payment.ID,
	})
	switch {
	case chargeErr == nil:
		payment.Status = domain.PaymentStatusCompleted
		payment.ProviderPaymentID = res.ProviderPaymentID
	case errors.Is(chargeErr, provider.ErrDeclined):
		payment.Status = domain.PaymentStatusFailed
		payment.FailureReason = chargeErr.Error()
	default:
		return nil, fmt.Errorf("charge payment: %w", chargeErr)
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.InfoContext(ctx, "payment processed",
		slog.String("payment_id", payment.ID),
		slog.String("user_id", payment.UserID),
		slog.String("status", payment.Status),
	)

	if payment.Status == domain.PaymentStatusFailed {
		return payment, apperrors.PaymentFailed("payment was declined")
	}
	return payment, nil
}

// List returns the identity's payments, newest first.
func (s *PaymentService) List(ctx context.Context, id domain.Identity) ([]domain.Payment, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	payments, err := s.payments.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListMethods returns the identity's payment methods, default first.
func (s *PaymentService) ListMethods(ctx context.Context, id domain.Identity) ([]domain.PaymentMethod, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	methods, err := s.methods.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// AddMethodInput holds the parameters for storing a payment method.
type AddMethodInput struct {
	Type        string
	LastFour    string
	ExpiryMonth *int
	ExpiryYear  *int
	IsDefault   bool
}

// AddMethod tokenizes and stores a payment method. The first method of a
// user always becomes the default.
func (s *PaymentService) AddMethod(ctx context.Context, id domain.Identity, input AddMethodInput) (*domain.PaymentMethod, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if !domain.IsValidPaymentMethodType(input.Type) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid payment method type: %s", input.Type))
	}
	if !isLastFour(input.LastFour) {
		return nil, apperrors.InvalidArgument("last four must be 4 digits")
	}
	if input.ExpiryMonth != nil && (*input.ExpiryMonth < 1 || *input.ExpiryMonth > 12) {
		return nil, apperrors.InvalidArgument("expiry month must be between 1 and 12")
	}

	count, err := s.methods.CountByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("count payment methods: %w", err)
	}

	token, err := s.provider.Tokenize(ctx, input.Type)
	if err != nil {
		return nil, fmt.Errorf("tokenize payment method: %w", err)
	}

	method := &domain.PaymentMethod{
		ID:          uuid.New().String(),
		UserID:      id.UserID,
		Type:        input.Type,
		ProviderID:  token,
		LastFour:    input.LastFour,
		ExpiryMonth: input.ExpiryMonth,
		ExpiryYear:  input.ExpiryYear,
		IsDefault:   input.IsDefault || count == 0,
		CreatedAt:   s.now(),
	}
	if err := s.methods.Create(ctx, method); err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}

	s.logger.InfoContext(ctx, "payment method added",
		slog.String("payment_method_id", method.ID),
		slog.String("user_id", id.UserID),
	)
	return method, nil
}

func isLastFour(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RemoveMethod deletes one of the identity's payment methods. The last
// method cannot be removed while a subscription is active.
func (s *PaymentService) RemoveMethod(ctx context.Context, id domain.Identity, methodID string) error {
	if !id.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	if _, err := s.methods.GetForUser(ctx, methodID, id.UserID); err != nil {
		return err
	}

	count, err := s.methods.CountByUser(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("count payment methods: %w", err)
	}
	if count <= 1 {
		active, err := s.subscriptions.HasActive(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("check subscription: %w", err)
		}
		if active {
			return apperrors.InvalidArgument("cannot remove the only payment method while a subscription is active")
		}
	}

	return s.methods.Delete(ctx, methodID, id.UserID)
}

// ListInvoices returns the identity's invoices, newest first.
func (s *PaymentService) ListInvoices(ctx context.Context, id domain.Identity, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, apperrors.InvalidArgument("start date must not be after end date")
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Limit > maxInvoiceLimit {
		filter.Limit = maxInvoiceLimit
	}

	invoices, err := s.invoices.List(ctx, id.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// InvoicePDF returns the URL of the invoice document, rendering and storing
// it on first request.
func (s *PaymentService) InvoicePDF(ctx context.Context, id domain.Identity, invoiceID string) (string, error) {
	if !id.IsAuthenticated() {
		return "", apperrors.Unauthenticated("authentication required")
	}
	inv, err := s.invoices.GetForUser(ctx, invoiceID, id.UserID)
	if err != nil {
		return "", err
	}
	if err := s.ensureInvoicePDF(ctx, inv); err != nil {
		return "", err
	}
	return inv.PDFURL, nil
}

func (s *PaymentService) ensureInvoicePDF(ctx context.Context, inv *domain.Invoice) error {
	if inv.PDFURL != "" {
		return nil
	}

	pdf := receipt.Render(receipt.InvoiceDocument(inv))
	url, err := s.store.Put(ctx, "invoices/"+inv.ID+".pdf", receipt.ContentType, pdf)
	if err != nil {
		return fmt.Errorf("store invoice: %w", err)
	}
	if err := s.invoices.SetPDFURL(ctx, inv.ID, url); err != nil {
		return fmt.Errorf("save invoice url: %w", err)
	}
	inv.PDFURL = url
	return nil
}

// SendInvoice asks the notification consumer to email the invoice.
func (s *PaymentService) SendInvoice(ctx context.Context, id domain.Identity, invoiceID string) error {
	if !id.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	inv, err := s.invoices.GetForUser(ctx, invoiceID, id.UserID)
	if err != nil {
		return err
	}
	if err := s.ensureInvoicePDF(ctx, inv); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.producer.PublishInvoiceSendRequested(ctx, inv, user.Email); err != nil {
		return fmt.Errorf("request invoice send: %w", err)
	}

	s.logger.InfoContext(ctx, "invoice send requested",
		slog.String("invoice_id", inv.ID),
		slog.String("user_id", id.UserID),
	)
	return nil
}
