package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/internal/repository"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

// SubscriptionService manages premium subscriptions.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	methods       repository.PaymentMethodRepository
	logger        *slog.Logger
	now           func() time.Time
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	methods repository.PaymentMethodRepository,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		methods:       methods,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe starts a one-month subscription paid with one of the user's
// payment methods and marks the user premium.
func (s *SubscriptionService) Subscribe(ctx context.Context, id domain.Identity, planID, paymentMethodID string) (*domain.Subscription, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, apperrors.InvalidArgument("plan id is required")
	}
	if _, err := s.methods.GetForUser(ctx, paymentMethodID, id.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &domain.Subscription{
		ID:                 uuid.New().String(),
		UserID:             id.UserID,
		PlanID:             planID,
		PaymentMethodID:    paymentMethodID,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		ActiveFeatures:     []string{},
		CreatedAt:          now,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription created",
		slog.String("subscription_id", sub.ID),
		slog.String("user_id", id.UserID),
		slog.String("plan_id", planID),
	)
	return sub, nil
}

// Cancel cancels the active subscription at period end and clears the
// premium flag.
func (s *SubscriptionService) Cancel(ctx context.Context, id domain.Identity) error {
	if !id.IsAuthenticated() {
		return apperrors.Unauthenticated("authentication required")
	}
	sub, err := s.subscriptions.GetActive(ctx, id.UserID)
	if err != nil {
		return err
	}
	if err := s.subscriptions.Cancel(ctx, sub.ID, id.UserID, s.now()); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "subscription canceled",
		slog.String("subscription_id", sub.ID),
		slog.String("user_id", id.UserID),
	)
	return nil
}

// Get reports the identity's subscription, if any.
func (s *SubscriptionService) Get(ctx context.Context, id domain.Identity) (*domain.SubscriptionStatus, error) {
	if !id.IsAuthenticated() {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	sub, err := s.subscriptions.GetActive(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.SubscriptionStatus{HasSubscription: false}, nil
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return &domain.SubscriptionStatus{HasSubscription: true, Subscription: sub}, nil
}
