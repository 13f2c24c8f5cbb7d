package domain

import "time"

// Subscription status constants.
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription is a recurring premium plan.
type Subscription struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"-"`
	PlanID             string    `json:"plan_id"`
	PaymentMethodID    string    `json:"payment_method_id,omitempty"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
	ActiveFeatures     []string  `json:"active_features"`
	CreatedAt          time.Time `json:"created_at"`
}

// SubscriptionStatus answers whether a user currently subscribes.
type SubscriptionStatus struct {
	HasSubscription bool          `json:"has_subscription"`
	Subscription    *Subscription `json:"subscription,omitempty"`
}

// PremiumFeature is a capability premium users can toggle.
type PremiumFeature struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}
