package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/service"
	"github.com/MichaelKMarwa/recupio/pkg/httputil"
	"github.com/MichaelKMarwa/recupio/pkg/pagination"
)

// FacilityHandler serves the facility directory.
type FacilityHandler struct {
	service *service.FacilityService
	logger  *slog.Logger
}

// NewFacilityHandler creates a new facility HTTP handler.
func NewFacilityHandler(svc *service.FacilityService, logger *slog.Logger) *FacilityHandler {
	return &FacilityHandler{service: svc, logger: logger}
}

// List handles GET /api/facilities.
func (h *FacilityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.FromRequest(r)
	filter := domain.FacilityFilter{
		Type:    q.Get("type"),
		City:    q.Get("city"),
		ZipCode: q.Get("zipCode"),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}

	var err error
	if filter.ItemIDs, err = uuidListParam(r, "itemIds"); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if filter.Lat, err = floatParam(r, "lat"); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if filter.Lng, err = floatParam(r, "lng"); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if filter.Radius, err = floatParam(r, "radius"); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, list)
}

// Get handles GET /api/facilities/{id}.
func (h *FacilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "facility id", id); !ok {
		return
	}

	facility, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, facility)
}

// Search handles GET /api/facilities/search?q=.
func (h *FacilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	facilities, err := h.service.Search(r.Context(), q.Get("q"), q.Get("type"), q.Get("zipCode"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, facilities)
}

// BestMatch handles GET /api/facilities/best-match?itemIds=.
func (h *FacilityHandler) BestMatch(w http.ResponseWriter, r *http.Request) {
	itemIDs, err := uuidListParam(r, "itemIds")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	match, err := h.service.BestMatch(r.Context(), itemIDs, r.URL.Query().Get("zipCode"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, match)
}

// CatalogHandler serves items, categories and impact totals.
type CatalogHandler struct {
	items  *service.ItemService
	impact *service.ImpactService
	logger *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(items *service.ItemService, impact *service.ImpactService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{items: items, impact: impact, logger: logger}
}

// ListItems handles GET /items.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, items)
}

// ListCategories handles GET /items/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.items.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// GetCategory handles GET /items/categories/{id} and GET /categories/{id}/items.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "category id", id); !ok {
		return
	}

	category, err := h.items.GetCategory(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, category)
}

// PopularCategories handles GET /categories/popular?limit=.
func (h *CatalogHandler) PopularCategories(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	categories, err := h.items.PopularCategories(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// CategoryStats handles GET /categories/{id}/stats.
func (h *CatalogHandler) CategoryStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, r, "category id", id); !ok {
		return
	}

	stats, err := h.items.CategoryStats(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// UserImpact handles GET /api/impact/user/{userId}.
func (h *CatalogHandler) UserImpact(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	summary, err := h.impact.UserSummary(r.Context(), id, chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}

// CommunityImpact handles GET /api/impact/community.
func (h *CatalogHandler) CommunityImpact(w http.ResponseWriter, r *http.Request) {
	summary, err := h.impact.CommunitySummary(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, summary)
}
