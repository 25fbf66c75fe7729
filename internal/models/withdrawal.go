package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
	WithdrawalPaid     WithdrawalStatus = "paid"
)

// WithdrawalStatuses lists every status in lifecycle order.
var WithdrawalStatuses = []WithdrawalStatus{WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalPaid}

func ParseWithdrawalStatus(s string) (WithdrawalStatus, bool) {
	for _, status := range WithdrawalStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalRejected || s == WithdrawalPaid
}

// Commits reports whether a request in this status holds funds against the balance.
func (s WithdrawalStatus) Commits() bool {
	return s == WithdrawalPending || s == WithdrawalApproved
}

type PayoutMethodType string

const (
	PayoutBank   PayoutMethodType = "bank"
	PayoutUPI    PayoutMethodType = "upi"
	PayoutWallet PayoutMethodType = "wallet"
)

// PayoutMethod is the provider-supplied destination of a withdrawal.
type PayoutMethod struct {
	Type    PayoutMethodType  `json:"type"`
	Details map[string]string `json:"details"`
}

// StatusChange is one entry of a withdrawal's audit trail.
type StatusChange struct {
	Status    WithdrawalStatus `json:"status"`
	Actor     string           `json:"actor"`
	ActorRole Role             `json:"actor_role"`
	Note      string           `json:"note,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// WithdrawalRequest is a provider's request to move available balance to a payout method.
type WithdrawalRequest struct {
	ID           string `json:"id" gorm:"column:id;primaryKey;size:36"`
	ProviderRole Role   `json:"provider_role" gorm:"column:provider_role;size:16;not null;index:idx_withdrawal_provider_status,priority:1"`
	ProviderID   string `json:"provider_id" gorm:"column:provider_id;size:64;not null;index:idx_withdrawal_provider_status,priority:2"`

	Amount       decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Currency     string          `json:"currency" gorm:"column:currency;size:3;not null"`
	PayoutMethod PayoutMethod    `json:"payout_method" gorm:"column:payout_method;type:jsonb;serializer:json;not null"`
	Notes        string          `json:"notes,omitempty" gorm:"column:notes;type:text"`

	Status WithdrawalStatus `json:"status" gorm:"column:status;size:16;not null;index:idx_withdrawal_provider_status,priority:3;index:idx_withdrawal_status"`

	AdminNote       string     `json:"admin_note,omitempty" gorm:"column:admin_note;type:text"`
	PayoutReference *string    `json:"payout_reference,omitempty" gorm:"column:payout_reference;size:128"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty" gorm:"column:processed_at"`
	ProcessedBy     *string    `json:"processed_by,omitempty" gorm:"column:processed_by;size:64"`

	// StatusHistory is append-only: one entry per accepted transition.
	StatusHistory []StatusChange `json:"status_history" gorm:"column:status_history;type:jsonb;serializer:json;not null"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

func (w *WithdrawalRequest) Provider() ProviderRef {
	return ProviderRef{Role: w.ProviderRole, ID: w.ProviderID}
}

// WithdrawalFilter narrows operator listings.
type WithdrawalFilter struct {
	Status *WithdrawalStatus
	Role   *Role
}
