package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/service"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/validator"
)

// DropOffHandler serves drop-offs, their history export and tax receipts.
type DropOffHandler struct {
	dropOffs *service.DropOffService
	receipts *service.ReceiptService
	logger   *slog.Logger
}

// NewDropOffHandler creates a new drop-off HTTP handler.
func NewDropOffHandler(dropOffs *service.DropOffService, receipts *service.ReceiptService, logger *slog.Logger) *DropOffHandler {
	return &DropOffHandler{dropOffs: dropOffs, receipts: receipts, logger: logger}
}

// CreateDropOffRequest is the JSON body of POST /api/drop-offs.
type CreateDropOffRequest struct {
	FacilityID  string               `json:"facilityId" validate:"required,uuid"`
	DropOffDate *time.Time           `json:"dropOffDate"`
	Notes       string               `json:"notes" validate:"max=2000"`
	Items       []DropOffItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DropOffItemRequest is one item line of a new drop-off.
type DropOffItemRequest struct {
	ItemID         string  `json:"itemId" validate:"required,uuid"`
	Quantity       int     `json:"quantity" validate:"gte=1"`
	Condition      string  `json:"condition" validate:"required,oneof=new used refurbished"`
	EstimatedValue float64 `json:"estimatedValue" validate:"gte=0"`
}

type dropOffResponse struct {
	DropOff *domain.DropOff      `json:"dropOff"`
	Impact  *domain.ImpactMetric `json:"impact"`
}

type receiptResponse struct {
	ReceiptURL string             `json:"receipt_url"`
	Receipt    *domain.TaxReceipt `json:"receipt"`
}

// Create handles POST /api/drop-offs for users and guests.
func (h *DropOffHandler) Create(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req CreateDropOffRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.CreateDropOffInput{
		FacilityID:  req.FacilityID,
		DropOffDate: req.DropOffDate,
		Notes:       req.Notes,
		Items:       make([]service.DropOffItemInput, len(req.Items)),
	}
	for i, it := range req.Items {
		input.Items[i] = service.DropOffItemInput{
			ItemID:         it.ItemID,
			Quantity:       it.Quantity,
			Condition:      it.Condition,
			EstimatedValue: it.EstimatedValue,
		}
	}

	d, impact, err := h.dropOffs.Create(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, dropOffResponse{DropOff: d, Impact: impact})
}

// ListForUser handles GET /api/drop-offs/user/{userId}.
func (h *DropOffHandler) ListForUser(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	userID := chi.URLParam(r, "userId")
	if _, ok := httputil.ParseUUID(w, r, "user id", userID); !ok {
		return
	}

	dropOffs, err := h.dropOffs.ListForUser(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, dropOffs)
}

// Get handles GET /api/drop-offs/{id}.
func (h *DropOffHandler) Get(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	dropOffID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "drop-off id", dropOffID); !ok {
		return
	}

	d, err := h.dropOffs.Get(r.Context(), id, dropOffID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, d)
}

// Recent handles GET /api/dropoffs/recent?limit=.
func (h *DropOffHandler) Recent(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	dropOffs, err := h.dropOffs.Recent(r.Context(), id, id.UserID, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, dropOffs)
}

// Export handles GET /api/dropoffs/export?format=csv|json&startDate=&endDate=.
// The file is sent as an attachment rather than in the JSON envelope.
func (h *DropOffHandler) Export(w http.ResponseWriter, r *http.Request, id domain.Identity) {
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

	file, err := h.dropOffs.Export(r.Context(), id, r.URL.Query().Get("format"), domain.ExportFilter{StartDate: start, EndDate: end})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// GenerateReceipt handles POST /api/tax-receipts/generate/{dropOffId}.
func (h *DropOffHandler) GenerateReceipt(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	dropOffID := chi.URLParam(r, "dropOffId")
	if _, ok := httputil.ParseUUID(w, r, "drop-off id", dropOffID); !ok {
		return
	}

	receipt, err := h.receipts.Generate(r.Context(), id, dropOffID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, receiptResponse{ReceiptURL: receipt.ReceiptURL, Receipt: receipt})
}

// ListReceipts handles GET /api/tax-receipts/user/{userId}.
func (h *DropOffHandler) ListReceipts(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	userID := chi.URLParam(r, "userId")
	if _, ok := httputil.ParseUUID(w, r, "user id", userID); !ok {
		return
	}

	receipts, err := h.receipts.ListForUser(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, receipts)
}
