package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

const (
	defaultFacilityLimit = 20
	maxFacilityLimit     = 100
)

// FacilityService implements the facility directory.
type FacilityService struct {
	repo   repository.FacilityRepository
	logger *slog.Logger
}

// NewFacilityService creates a new facility service.
func NewFacilityService(repo repository.FacilityRepository, logger *slog.Logger) *FacilityService {
	return &FacilityService{repo: repo, logger: logger}
}

// List returns one page of facilities matching filter.
func (s *FacilityService) List(ctx context.Context, filter domain.FacilityFilter) (*domain.FacilityList, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultFacilityLimit
	}
	if filter.Limit > maxFacilityLimit {
		filter.Limit = maxFacilityLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if err := validateGeo(filter); err != nil {
		return nil, err
	}
	filter.ItemIDs = dedupe(filter.ItemIDs)

	facilities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return &domain.FacilityList{Facilities: facilities, Total: total}, nil
}

func validateGeo(f domain.FacilityFilter) error {
	if f.Lat != nil && (*f.Lat < -90 || *f.Lat > 90) {
		return apperrors.InvalidArgument("lat must be between -90 and 90")
	}
	if f.Lng != nil && (*f.Lng < -180 || *f.Lng > 180) {
		return apperrors.InvalidArgument("lng must be between -180 and 180")
	}
	if f.Radius != nil && *f.Radius <= 0 {
		return apperrors.InvalidArgument("radius must be greater than zero")
	}
	return nil
}

// Get returns one facility with its hours and accepted items.
func (s *FacilityService) Get(ctx context.Context, id string) (*domain.Facility, error) {
	return s.repo.GetByID(ctx, id)
}

// Search matches q against facility names and addresses.
func (s *FacilityService) Search(ctx context.Context, q, facilityType, zipCode string) ([]domain.Facility, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.InvalidArgument("search query is required")
	}

	facilities, err := s.repo.Search(ctx, q, facilityType, zipCode)
	if err != nil {
		return nil, fmt.Errorf("search facilities: %w", err)
	}
	return facilities, nil
}

// BestMatch finds the facility that accepts the most of itemIDs.
func (s *FacilityService) BestMatch(ctx context.Context, itemIDs []string, zipCode string) (*domain.BestMatch, error) {
	itemIDs = dedupe(itemIDs)
	if len(itemIDs) == 0 {
		return nil, apperrors.InvalidArgument("at least one item id is required")
	}

	facility, matches, err := s.repo.BestMatch(ctx, itemIDs, zipCode)
	if err != nil {
		return nil, err
	}

	return &domain.BestMatch{
		Facility:        facility,
		MatchCount:      matches,
		MatchPercentage: fmt.Sprintf("%.2f", float64(matches)/float64(len(itemIDs))*100),
	}, nil
}

// dedupe drops blanks and repeats, keeping first occurrences in order.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
