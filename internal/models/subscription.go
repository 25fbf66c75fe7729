package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// DurationTier is a priced duration option of a plan.
type DurationTier struct {
	Key   string          `json:"key"`
	Days  int             `json:"days"`
	Price decimal.Decimal `json:"price"`
}

// SubscriptionPlan is the catalog entry subscribers pick a tier from.
type SubscriptionPlan struct {
	ID        string         `json:"id" gorm:"column:id;primaryKey;size:36"`
	Name      string         `json:"name" gorm:"column:name;size:128;not null"`
	Currency  string         `json:"currency" gorm:"column:currency;size:3;not null"`
	Durations []DurationTier `json:"durations" gorm:"column:durations;type:jsonb;serializer:json;not null"`
	// Active marks the plan offered to subscribers. At most one plan is active.
	Active    bool      `json:"active" gorm:"column:active;not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Tier returns the duration tier with the given key.
func (p *SubscriptionPlan) Tier(key string) (DurationTier, bool) {
	for _, tier := range p.Durations {
		if tier.Key == key {
			return tier, true
		}
	}
	return DurationTier{}, false
}

// Subscription is a provider's paid access period.
type Subscription struct {
	ID             string `json:"id" gorm:"column:id;primaryKey;size:36"`
	SubscriberRole Role   `json:"subscriber_role" gorm:"column:subscriber_role;size:16;not null;index:idx_subscription_subscriber_status,priority:1"`
	SubscriberID   string `json:"subscriber_id" gorm:"column:subscriber_id;size:64;not null;index:idx_subscription_subscriber_status,priority:2"`

	PlanID       string `json:"plan_id" gorm:"column:plan_id;size:36;not null"`
	DurationKey  string `json:"duration_key" gorm:"column:duration_key;size:32;not null"`
	DurationDays int    `json:"duration_days" gorm:"column:duration_days;not null"`

	Amount   decimal.Decimal    `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Currency string             `json:"currency" gorm:"column:currency;size:3;not null"`
	Status   SubscriptionStatus `json:"status" gorm:"column:status;size:16;not null;index:idx_subscription_subscriber_status,priority:3;index:idx_subscription_status_ends,priority:1"`

	// OrderID is the gateway order this subscription is paid through.
	OrderID string `json:"order_id" gorm:"column:order_id;size:64;not null;uniqueIndex"`

	StartsAt *time.Time `json:"starts_at,omitempty" gorm:"column:starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty" gorm:"column:ends_at;index:idx_subscription_status_ends,priority:2"`

	// RenewedFrom points at the subscription that was active when this one was ordered.
	RenewedFrom  *string `json:"renewed_from,omitempty" gorm:"column:renewed_from;size:36"`
	CancelReason string  `json:"cancel_reason,omitempty" gorm:"column:cancel_reason;type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Subscriber() ProviderRef {
	return ProviderRef{Role: s.SubscriberRole, ID: s.SubscriberID}
}
