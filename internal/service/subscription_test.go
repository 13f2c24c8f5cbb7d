package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	apperrors "github.com/MichaelKMarwa/recupio/pkg/errors"
)

func TestSubscribe(t *testing.T) {
	now := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	subs, methods := new(mockSubscriptionRepository), new(mockPaymentMethodRepository)
	methods.On("GetForUser", mock.Anything, "pm-1", "u-1").Return(&domain.PaymentMethod{ID: "pm-1"}, nil)
	subs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Subscription")).Return(nil)

	svc := NewSubscriptionService(subs, methods, newTestLogger())
	svc.now = fixedClock(now)

	sub, err := svc.Subscribe(context.Background(), payer, " premium-monthly ", "pm-1")
	require.NoError(t, err)
	assert.Equal(t, "premium-monthly", sub.PlanID)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.Equal(t, now, sub.CurrentPeriodStart)
	assert.Equal(t, now.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
}

func TestSubscribe_Rejections(t *testing.T) {
	subs, methods := new(mockSubscriptionRepository), new(mockPaymentMethodRepository)
	methods.On("GetForUser", mock.Anything, "pm-x", "u-1").Return(nil, apperrors.NotFound("payment method", "pm-x"))
	svc := NewSubscriptionService(subs, methods, newTestLogger())

	_, err := svc.Subscribe(context.Background(), payer, "", "pm-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.Subscribe(context.Background(), payer, "plan", "pm-x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Subscribe(context.Background(), domain.Guest("g", "s"), "plan", "pm-1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	subs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCancelSubscription(t *testing.T) {
	subs := new(mockSubscriptionRepository)
	subs.On("GetActive", mock.Anything, "u-1").Return(&domain.Subscription{ID: "s-1", UserID: "u-1"}, nil).Once()
	subs.On("Cancel", mock.Anything, "s-1", "u-1", mock.Anything).Return(nil)
	subs.On("GetActive", mock.Anything, "u-1").Return(nil, apperrors.NotFoundMessage("no active subscription found"))

	svc := NewSubscriptionService(subs, new(mockPaymentMethodRepository), newTestLogger())
	require.NoError(t, svc.Cancel(context.Background(), payer))
	assert.ErrorIs(t, svc.Cancel(context.Background(), payer), apperrors.ErrNotFound)
}

func TestGetSubscription(t *testing.T) {
	subs := new(mockSubscriptionRepository)
	subs.On("GetActive", mock.Anything, "u-1").Return(&domain.Subscription{ID: "s-1"}, nil)
	subs.On("GetActive", mock.Anything, "u-2").Return(nil, apperrors.NotFoundMessage("no active subscription found"))
	svc := NewSubscriptionService(subs, new(mockPaymentMethodRepository), newTestLogger())

	status, err := svc.Get(context.Background(), payer)
	require.NoError(t, err)
	assert.True(t, status.HasSubscription)
	assert.Equal(t, "s-1", status.Subscription.ID)

	status, err = svc.Get(context.Background(), domain.Authenticated("u-2", domain.RoleStandard))
	require.NoError(t, err)
	assert.False(t, status.HasSubscription)
	assert.Nil(t, status.Subscription)
}
