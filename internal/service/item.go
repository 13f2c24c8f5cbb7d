package service

import (
	"context"
	"fmt"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
)

const (
	defaultPopularLimit = 5
	maxPopularLimit     = 50
)

// ItemService serves the item catalogue.
type ItemService struct {
	repo repository.ItemRepository
}

// NewItemService creates a new item service.
func NewItemService(repo repository.ItemRepository) *ItemService {
	return &ItemService{repo: repo}
}

// List returns every item with its category.
func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListCategories returns every category.
func (s *ItemService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category and its items.
func (s *ItemService) GetCategory(ctx context.Context, id string) (*domain.CategoryWithItems, error) {
	return s.repo.GetCategory(ctx, id)
}

// PopularCategories ranks categories by drop-off count.
func (s *ItemService) PopularCategories(ctx context.Context, limit int) ([]domain.PopularCategory, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	if limit > maxPopularLimit {
		limit = maxPopularLimit
	}
	categories, err := s.repo.PopularCategories(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular categories: %w", err)
	}
	return categories, nil
}

// CategoryStats aggregates activity for one category.
func (s *ItemService) CategoryStats(ctx context.Context, id string) (*domain.CategoryStats, error) {
	return s.repo.CategoryStats(ctx, id)
}
