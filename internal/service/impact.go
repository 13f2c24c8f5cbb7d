package service

import (
	"context"
	"fmt"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// ImpactService reports environmental impact totals.
type ImpactService struct {
	repo repository.ImpactRepository
}

// NewImpactService creates a new impact service.
func NewImpactService(repo repository.ImpactRepository) *ImpactService {
	return &ImpactService{repo: repo}
}

// UserSummary totals the impact of userID. Only the user may read it.
func (s *ImpactService) UserSummary(ctx context.Context, id domain.Identity, userID string) (*domain.ImpactSummary, error) {
	if !canAccessUser(id, userID) {
		return nil, apperrors.PermissionDenied("cannot view another user's impact")
	}
	summary, err := s.repo.UserSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user impact: %w", err)
	}
	return summary, nil
}

// CommunitySummary totals the impact of every drop-off.
func (s *ImpactService) CommunitySummary(ctx context.Context) (*domain.ImpactSummary, error) {
	summary, err := s.repo.CommunitySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("community impact: %w", err)
	}
	return summary, nil
}
