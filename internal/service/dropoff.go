package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/event"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// Export formats.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

// DropOffService records drop-offs and their environmental impact.
type DropOffService struct {
	dropOffs repository.DropOffRepository
	items    repository.ItemRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewDropOffService creates a new drop-off service.
func NewDropOffService(
	dropOffs repository.DropOffRepository,
	items repository.ItemRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *DropOffService {
	return &DropOffService{
		dropOffs: dropOffs,
		items:    items,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DropOffItemInput is one line of a new drop-off.
type DropOffItemInput struct {
	ItemID         string
	Quantity       int
	Condition      string
	EstimatedValue float64
}

// CreateDropOffInput holds the parameters for recording a drop-off.
type CreateDropOffInput struct {
	FacilityID  string
	DropOffDate *time.Time
	Notes       string
	Items       []DropOffItemInput
}

// Create records a drop-off for a user or a guest, along with its impact.
func (s *DropOffService) Create(ctx context.Context, id domain.Identity, input CreateDropOffInput) (*domain.DropOff, *domain.ImpactMetric, error) {
	if !id.IsAuthenticated() && !id.IsGuest() {
		return nil, nil, apperrors.Unauthenticated("authentication required")
	}
	if err := validateDropOff(input); err != nil {
		return nil, nil, err
	}

	ids := make([]string, len(input.Items))
	for i, it := range input.Items {
		ids[i] = it.ItemID
	}
	offsets, err := s.items.CarbonOffsets(ctx, dedupe(ids))
	if err != nil {
		return nil, nil, fmt.Errorf("load carbon offsets: %w", err)
	}
	for _, itemID := range ids {
		if _, ok := offsets[itemID]; !ok {
			return nil, nil, apperrors.NotFound("item", itemID)
		}
	}

	now := s.now()
	d := &domain.DropOff{
		ID:          uuid.New().String(),
		FacilityID:  input.FacilityID,
		DropOffDate: now,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedAt:   now,
		Items:       make([]domain.DropOffItem, len(input.Items)),
	}
	if input.DropOffDate != nil {
		d.DropOffDate = input.DropOffDate.UTC()
	}
	owner := id.UserID
	if id.IsGuest() {
		d.GuestSessionID = &owner
	} else {
		d.UserID = &owner
	}

	for i, it := range input.Items {
		d.Items[i] = domain.DropOffItem{
			ID:             uuid.New().String(),
			DropOffID:      d.ID,
			ItemID:         it.ItemID,
			Quantity:       it.Quantity,
			Condition:      it.Condition,
			EstimatedValue: it.EstimatedValue,
		}
	}

	impact := domain.CalculateImpact(d.Items, offsets)
	impact.ID = uuid.New().String()
	impact.UserID = d.UserID
	impact.DropOffID = d.ID
	impact.CreatedAt = now

	if err := s.dropOffs.Create(ctx, d, &impact); err != nil {
		return nil, nil, fmt.Errorf("create drop-off: %w", err)
	}

	if err := s.producer.PublishDropOffRecorded(ctx, d, &impact); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish dropoff.recorded event",
			slog.String("drop_off_id", d.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "drop-off recorded",
		slog.String("drop_off_id", d.ID),
		slog.String("principal", id.Kind.String()),
		slog.Int("items", len(d.Items)),
		slog.Float64("carbon_offset", impact.CarbonOffset),
	)
	return d, &impact, nil
}

func validateDropOff(input CreateDropOffInput) error {
	if strings.TrimSpace(input.FacilityID) == "" {
		return apperrors.InvalidArgument("facility id is required")
	}
	if len(input.Items) == 0 {
		return apperrors.InvalidArgument("at least one item is required")
	}
	for i, it := range input.Items {
		switch {
		case strings.TrimSpace(it.ItemID) == "":
			return apperrors.InvalidArgument(fmt.Sprintf("items[%d]: item id is required", i))
		case it.Quantity < 1:
			return apperrors.InvalidArgument(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		case !domain.IsValidCondition(it.Condition):
			return apperrors.InvalidArgument(fmt.Sprintf("items[%d]: condition must be one of %s",
				i, strings.Join(domain.ValidConditions(), ", ")))
		case it.EstimatedValue < 0:
			return apperrors.InvalidArgument(fmt.Sprintf("items[%d]: estimated value must not be negative", i))
		}
	}
	return nil
}

// ListForUser returns the drop-offs of userID. Only that user may list them.
func (s *DropOffService) ListForUser(ctx context.Context, id domain.Identity, userID string) ([]domain.DropOff, error) {
	if !canAccessUser(id, userID) {
		return nil, apperrors.PermissionDenied("cannot view another user's drop-offs")
	}
	dropOffs, err := s.dropOffs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list drop-offs: %w", err)
	}
	return dropOffs, nil
}

// Get returns one drop-off with its items. Drop-offs of other principals
// are reported as not found.
func (s *DropOffService) Get(ctx context.Context, id domain.Identity, dropOffID string) (*domain.DropOff, error) {
	d, err := s.dropOffs.GetByID(ctx, dropOffID)
	if err != nil {
		return nil, err
	}
	if !d.OwnedBy(id) {
		return nil, apperrors.NotFound("drop-off", dropOffID)
	}
	return d, nil
}

// Recent returns the latest drop-offs of userID with their items.
func (s *DropOffService) Recent(ctx context.Context, id domain.Identity, userID string, limit int) ([]domain.DropOff, error) {
	if !canAccessUser(id, userID) {
		return nil, apperrors.PermissionDenied("cannot view another user's drop-offs")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	dropOffs, err := s.dropOffs.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent drop-offs: %w", err)
	}
	return dropOffs, nil
}

// ExportFile is a rendered drop-off history.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the drop-off history of the identity's user as CSV or JSON.
func (s *DropOffService) Export(ctx context.Context, id domain.Identity, format string, filter domain.ExportFilter) (*ExportFile, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportJSON {
		return nil, apperrors.InvalidArgument("format must be csv or json")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, apperrors.InvalidArgument("start date must not be after end date")
	}

	rows, err := s.dropOffs.Export(ctx, id.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("export drop-offs: %w", err)
	}

	name := "dropoffs-" + s.now().Format("20060102")
	if format == ExportJSON {
		data, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("encode export: %w", err)
		}
		return &ExportFile{Filename: name + ".json", ContentType: "application/json", Data: data}, nil
	}

	data, err := encodeExportCSV(rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{Filename: name + ".csv", ContentType: "text/csv", Data: data}, nil
}

var exportHeader = []string{
	"drop_off_id", "drop_off_date", "facility", "item", "quantity", "condition",
	"estimated_value", "carbon_offset", "trees_equivalent", "landfill_reduction",
}

func encodeExportCSV(rows []domain.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.DropOffID,
			r.DropOffDate.Format(time.RFC3339),
			r.FacilityName,
			r.ItemName,
			strconv.Itoa(r.Quantity),
			r.Condition,
			strconv.FormatFloat(r.EstimatedValue, 'f', 2, 64),
			strconv.FormatFloat(r.CarbonOffset, 'f', 2, 64),
			strconv.FormatFloat(r.TreesEquivalent, 'f', 2, 64),
			strconv.FormatFloat(r.LandfillReduction, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// canAccessUser reports whether id may read data owned by userID.
func canAccessUser(id domain.Identity, userID string) bool {
	return id.IsUser(userID) || (id.IsAuthenticated() && id.Role == domain.RoleAdmin)
}
