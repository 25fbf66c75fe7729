package models

import "context"

// Routing keys of the domain events published after a committed write.
const (
	EventEarningCredited         = "earning.credited"
	EventWithdrawalRequested     = "withdrawal.requested"
	EventWithdrawalStatusChanged = "withdrawal.status_changed"
	EventSubscriptionActivated   = "subscription.activated"
	EventSubscriptionCancelled   = "subscription.cancelled"
	EventSubscriptionsExpired    = "subscriptions.expired"
)

// EventPublisher delivers domain events to downstream consumers (notifications, analytics).
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// OperatorNotifier pushes short alerts to the operations team.
type OperatorNotifier interface {
	NotifyOperators(ctx context.Context, message string)
}

// AccountDirectory answers whether an account has passed onboarding review.
type AccountDirectory interface {
	IsApproved(ctx context.Context, account ProviderRef) (bool, error)
}
