package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// PremiumService manages premium features. Callers gate activation and the
// per-user listing behind the premium check.
type PremiumService struct {
	features repository.PremiumFeatureRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewPremiumService creates a new premium feature service.
func NewPremiumService(features repository.PremiumFeatureRepository, logger *slog.Logger) *PremiumService {
	return &PremiumService{
		features: features,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListFeatures returns every active feature.
func (s *PremiumService) ListFeatures(ctx context.Context) ([]domain.PremiumFeature, error) {
	features, err := s.features.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list premium features: %w", err)
	}
	return features, nil
}

// Activate enables featureID for the identity's user. Activating twice is a
// no-op.
func (s *PremiumService) Activate(ctx context.Context, id domain.Identity, featureID string) (*domain.PremiumFeature, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	feature, err := s.features.GetActive(ctx, featureID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.features.Activate(ctx, id.UserID, feature.ID, now); err != nil {
		return nil, fmt.Errorf("activate feature: %w", err)
	}
	feature.ActivatedAt = &now

	s.logger.InfoContext(ctx, "premium feature activated",
		slog.String("feature_id", feature.ID),
		slog.String("user_id", id.UserID),
	)
	return feature, nil
}

// ListForUser returns the features the identity's user has activated.
func (s *PremiumService) ListForUser(ctx context.Context, id domain.Identity) ([]domain.PremiumFeature, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	features, err := s.features.ListForUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list user features: %w", err)
	}
	return features, nil
}

// Deactivate disables featureID for the identity's user.
func (s *PremiumService) Deactivate(ctx context.Context, id domain.Identity, featureID string) error {
	if !id.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	if err := s.features.Deactivate(ctx, id.UserID, featureID); err != nil {
		return fmt.Errorf("deactivate feature: %w", err)
	}
	return nil
}
