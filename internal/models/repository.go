package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository stores provider earnings.
type LedgerRepository interface {
	// InsertEarning stores entry unless the booking was already credited. It returns
	// the stored entry and whether this call created it.
	InsertEarning(ctx context.Context, entry *EarningEntry) (*EarningEntry, bool, error)
	GetBalance(ctx context.Context, provider ProviderRef) (*Balance, error)
	ListEarnings(ctx context.Context, provider ProviderRef, limit, offset int) ([]*EarningEntry, int64, error)
}

// WithdrawalRepository stores withdrawal requests.
type WithdrawalRepository interface {
	// CreateWithdrawal locks the provider's wallet row, computes the balance and calls
	// check with it before inserting request, all in one transaction.
	CreateWithdrawal(ctx context.Context, request *WithdrawalRequest, check func(balance *Balance) error) error
	GetWithdrawal(ctx context.Context, id string) (*WithdrawalRequest, error)
	// UpdateWithdrawal locks the request, lets mutate change it and saves it only if
	// its stored status is still the one mutate saw.
	UpdateWithdrawal(ctx context.Context, id string, mutate func(request *WithdrawalRequest) error) (*WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, provider *ProviderRef, filter WithdrawalFilter, limit, offset int) ([]*WithdrawalRequest, int64, error)
}

// PaymentFailure describes a rejected gateway confirmation.
type PaymentFailure struct {
	SubscriptionID   string
	PaymentID        string
	GatewayPaymentID string
	Signature        string
	Reason           string
	At               time.Time
}

// Activation describes a verified gateway confirmation.
type Activation struct {
	SubscriptionID   string
	PaymentID        string
	GatewayPaymentID string
	Signature        string
	StartsAt         time.Time
	EndsAt           time.Time
	Commission       *AdminCommissionEntry
}

// SubscriptionRepository stores plans, subscriptions and their payments.
type SubscriptionRepository interface {
	GetActivePlan(ctx context.Context) (*SubscriptionPlan, error)
	// SavePlan inserts plan; when plan is active every other plan is deactivated.
	SavePlan(ctx context.Context, plan *SubscriptionPlan) error
	// FindActiveSubscription returns the active subscription of subscriber whose period
	// covers at.
	FindActiveSubscription(ctx context.Context, subscriber ProviderRef, at time.Time) (*Subscription, error)
	CreateSubscriptionOrder(ctx context.Context, subscription *Subscription, payment *Payment) error
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error)
	// FailSubscriptionPayment marks a pending payment failed and its pending
	// subscription cancelled.
	FailSubscriptionPayment(ctx context.Context, failure PaymentFailure) error
	// ActivateSubscription marks the payment successful, the subscription active and
	// records the admin commission, in one transaction. The bool reports whether this
	// call performed the activation.
	ActivateSubscription(ctx context.Context, activation Activation) (*Subscription, bool, error)
	ListSubscriptions(ctx context.Context, subscriber ProviderRef, limit, offset int) ([]*Subscription, int64, error)
	// ExpireSubscriptions flips active subscriptions that ended at or before now.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// ProviderEarningTotals is one provider's ledger rollup.
type ProviderEarningTotals struct {
	ProviderRole Role
	ProviderID   string
	Gross        decimal.Decimal
	Commission   decimal.Decimal
	Net          decimal.Decimal
	Entries      int64
}

// ProviderWithdrawalTotals is one provider's withdrawals in one status.
type ProviderWithdrawalTotals struct {
	ProviderRole Role
	ProviderID   string
	Status       WithdrawalStatus
	Amount       decimal.Decimal
	Count        int64
}

// EarningAmounts is the slice of a ledger entry that trend bucketing reads.
type EarningAmounts struct {
	CreditedAt       time.Time
	GrossAmount      decimal.Decimal
	CommissionAmount decimal.Decimal
	NetAmount        decimal.Decimal
}

// CommissionAmount is the slice of a subscription income entry that trend bucketing reads.
type CommissionAmount struct {
	CreatedAt time.Time
	Amount    decimal.Decimal
}

// OverviewRepository serves read-only rollups for operators.
type OverviewRepository interface {
	EarningTotalsByProvider(ctx context.Context, role *Role) ([]ProviderEarningTotals, error)
	WithdrawalTotalsByProvider(ctx context.Context, role *Role) ([]ProviderWithdrawalTotals, error)
	AdminCommissionTotal(ctx context.Context) (decimal.Decimal, int64, error)
	CountSubscriptionsByStatus(ctx context.Context) (map[SubscriptionStatus]int64, error)
	EarningsBetween(ctx context.Context, from, to time.Time) ([]EarningAmounts, error)
	AdminCommissionsBetween(ctx context.Context, from, to time.Time) ([]CommissionAmount, error)
}

// LockRepository hands out leases for background jobs.
type LockRepository interface {
	AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}

// Repository is everything the service needs from storage.
type Repository interface {
	LedgerRepository
	WithdrawalRepository
	SubscriptionRepository
	OverviewRepository
	LockRepository

	Close() error
}
