package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/service"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/validator"
)

// BillingHandler serves payments, payment methods, invoices, subscriptions
// and premium features.
type BillingHandler struct {
	payments      *service.PaymentService
	subscriptions *service.SubscriptionService
	premium       *service.PremiumService
	logger        *slog.Logger
}

// NewBillingHandler creates a new billing HTTP handler.
func NewBillingHandler(
	payments *service.PaymentService,
	subscriptions *service.SubscriptionService,
	premium *service.PremiumService,
	logger *slog.Logger,
) *BillingHandler {
	return &BillingHandler{
		payments:      payments,
		subscriptions: subscriptions,
		premium:       premium,
		logger:        logger,
	}
}

// --- Request DTOs ---

// CreatePaymentRequest is the JSON body of POST /payments. Amount is in
// minor currency units.
type CreatePaymentRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=card bank_account wallet"`
	FeatureID     string `json:"featureId" validate:"omitempty,uuid"`
}

// AddPaymentMethodRequest is the JSON body of POST /api/payments/methods.
type AddPaymentMethodRequest struct {
	Type        string `json:"type" validate:"required,oneof=card bank_account wallet"`
	LastFour    string `json:"lastFour" validate:"required,len=4,numeric"`
	ExpiryMonth *int   `json:"expiryMonth" validate:"omitempty,gte=1,lte=12"`
	ExpiryYear  *int   `json:"expiryYear" validate:"omitempty,gte=2000"`
	IsDefault   bool   `json:"isDefault"`
}

// SubscribeRequest is the JSON body of POST /api/premium/subscribe.
type SubscribeRequest struct {
	PlanID          string `json:"planId" validate:"required"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required,uuid"`
}

// FeatureRequest is the JSON body of the premium activate/deactivate routes.
type FeatureRequest struct {
	FeatureID string `json:"featureId" validate:"required,uuid"`
}

type invoicePDFResponse struct {
	PDFURL string `json:"pdf_url"`
}

// --- Payments ---

// CreatePayment handles POST /payments. A declined charge answers 422 with
// the failed payment recorded.
func (h *BillingHandler) CreatePayment(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req CreatePaymentRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	payment, err := h.payments.Create(r.Context(), id, service.CreatePaymentInput{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		FeatureID:     req.FeatureID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, payment)
}

// ListPayments handles GET /payments.
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	payments, err := h.payments.List(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, payments)
}

// --- Payment methods ---

// ListMethods handles GET /api/payments/methods.
func (h *BillingHandler) ListMethods(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	methods, err := h.payments.ListMethods(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, methods)
}

// AddMethod handles POST /api/payments/methods.
func (h *BillingHandler) AddMethod(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req AddPaymentMethodRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	method, err := h.payments.AddMethod(r.Context(), id, service.AddMethodInput{
		Type:        req.Type,
		LastFour:    req.LastFour,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, method)
}

// RemoveMethod handles DELETE /api/payments/methods/{id}.
func (h *BillingHandler) RemoveMethod(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	methodID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "payment method id", methodID); !ok {
		return
	}

	if err := h.payments.RemoveMethod(r.Context(), id, methodID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}

// --- Invoices ---

// ListInvoices handles GET /api/payments/invoices?startDate=&endDate=&limit=.
func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	start, err := dateParam(r, "startDate", false)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	end, err := dateParam(r, "endDate", true)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	invoices, err := h.payments.ListInvoices(r.Context(), id, domain.InvoiceFilter{StartDate: start, EndDate: end, Limit: limit})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, invoices)
}

// InvoicePDF handles GET /api/payments/invoices/{id}/pdf.
func (h *BillingHandler) InvoicePDF(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	invoiceID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "invoice id", invoiceID); !ok {
		return
	}

	url, err := h.payments.InvoicePDF(r.Context(), id, invoiceID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, invoicePDFResponse{PDFURL: url})
}

// SendInvoice handles POST /api/payments/invoices/{id}/send.
func (h *BillingHandler) SendInvoice(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	invoiceID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "invoice id", invoiceID); !ok {
		return
	}

	if err := h.payments.SendInvoice(r.Context(), id, invoiceID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, successResponse{Success: true})
}

// --- Subscriptions ---

// Subscribe handles POST /api/premium/subscribe.
func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req SubscribeRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sub, err := h.subscriptions.Subscribe(r.Context(), id, req.PlanID, req.PaymentMethodID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, sub)
}

// CancelSubscription handles PUT /api/premium/cancel.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	if err := h.subscriptions.Cancel(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}

// GetSubscription handles GET /api/premium/subscription.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	status, err := h.subscriptions.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, status)
}

// --- Premium features ---

// ListFeatures handles GET /api/premium/features.
func (h *BillingHandler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.premium.ListFeatures(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, features)
}

// ActivateFeature handles POST /api/premium/activate.
func (h *BillingHandler) ActivateFeature(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req FeatureRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	feature, err := h.premium.Activate(r.Context(), id, req.FeatureID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, feature)
}

// ActiveFeatures handles GET /api/premium/features/active.
func (h *BillingHandler) ActiveFeatures(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	features, err := h.premium.ListForUser(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, features)
}

// DeactivateFeature handles POST /api/premium/deactivate.
func (h *BillingHandler) DeactivateFeature(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req FeatureRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.premium.Deactivate(r.Context(), id, req.FeatureID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, successResponse{Success: true})
}
