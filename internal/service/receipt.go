package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/receipt"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	"github.com/MichaelKMarwa/recupio/internal/storage"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// ReceiptService issues tax receipts for drop-offs.
type ReceiptService struct {
	dropOffs repository.DropOffRepository
	receipts repository.ReceiptRepository
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewReceiptService creates a new receipt service.
func NewReceiptService(
	dropOffs repository.DropOffRepository,
	receipts repository.ReceiptRepository,
	store storage.Store,
	logger *slog.Logger,
) *ReceiptService {
	return &ReceiptService{
		dropOffs: dropOffs,
		receipts: receipts,
		store:    store,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders and stores a receipt for one of the user's drop-offs.
func (s *ReceiptService) Generate(ctx context.Context, id domain.Identity, dropOffID string) (*domain.TaxReceipt, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}

	d, err := s.dropOffs.GetByID(ctx, dropOffID)
	if err != nil {
		return nil, err
	}
	if !d.OwnedBy(id) {
		return nil, apperrors.NotFound("drop-off", dropOffID)
	}

	total, err := s.dropOffs.TotalValue(ctx, dropOffID)
	if err != nil {
		return nil, fmt.Errorf("drop-off value: %w", err)
	}
	if total <= 0 {
		return nil, apperrors.InvalidArgument("drop-off has no estimated value")
	}

	now := s.now()
	number, err := domain.NewReceiptNumber(now)
	if err != nil {
		return nil, err
	}

	r := &domain.TaxReceipt{
		ID:            uuid.New().String(),
		DropOffID:     d.ID,
		UserID:        id.UserID,
		ReceiptNumber: number,
		ReceiptDate:   now,
		TaxYear:       d.DropOffDate.Year(),
		TotalValue:    total,
		CreatedAt:     now,
	}

	pdf := receipt.Render(receipt.TaxReceiptDocument(r, d))
	url, err := s.store.Put(ctx, "receipts/"+number+".pdf", receipt.ContentType, pdf)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}
	r.ReceiptURL = url

	if err := s.receipts.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	s.logger.InfoContext(ctx, "tax receipt generated",
		slog.String("receipt_number", number),
		slog.String("drop_off_id", d.ID),
		slog.String("user_id", id.UserID),
	)
	return r, nil
}

// ListForUser returns the receipts of userID.
func (s *ReceiptService) ListForUser(ctx context.Context, id domain.Identity, userID string) ([]domain.TaxReceipt, error) {
	if !canAccessUser(id, userID) {
		return nil, apperrors.PermissionDenied("cannot view another user's receipts")
	}
	receipts, err := s.receipts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}
