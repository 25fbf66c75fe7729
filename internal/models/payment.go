package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

const PaymentPurposeSubscription = "subscription"

// Payment is the record of one gateway order and its confirmation.
type Payment struct {
	ID      string `json:"id" gorm:"column:id;primaryKey;size:36"`
	OrderID string `json:"order_id" gorm:"column:order_id;size:64;not null;uniqueIndex"`
	// GatewayPaymentID is set when the gateway confirms a payment against the order.
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty" gorm:"column:gateway_payment_id;size:64"`

	Amount   decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Currency string          `json:"currency" gorm:"column:currency;size:3;not null"`
	Status   PaymentStatus   `json:"status" gorm:"column:status;size:16;not null;index"`
	Purpose  string          `json:"purpose" gorm:"column:purpose;size:32;not null"`

	// OwnerRole and OwnerID identify the account that pays.
	OwnerRole Role   `json:"owner_role" gorm:"column:owner_role;size:16;not null"`
	OwnerID   string `json:"owner_id" gorm:"column:owner_id;size:64;not null;index"`

	// Metadata links the payment back to its business object (subscription_id, booking_id, ...).
	Metadata datatypes.JSONMap `json:"metadata"`

	Signature     string     `json:"-" gorm:"column:signature;size:256"`
	FailureReason string     `json:"failure_reason,omitempty" gorm:"column:failure_reason;type:text"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty" gorm:"column:verified_at"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment has been settled either way.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentSuccess || p.Status == PaymentFailed
}

// AdminCommissionEntry records platform income from a subscription payment.
type AdminCommissionEntry struct {
	ID       string          `json:"id" gorm:"column:id;primaryKey;size:36"`
	Amount   decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Currency string          `json:"currency" gorm:"column:currency;size:3;not null"`
	Role     Role            `json:"role" gorm:"column:role;size:16;not null;index"`

	SubscriberID   string `json:"subscriber_id" gorm:"column:subscriber_id;size:64;not null"`
	SubscriptionID string `json:"subscription_id" gorm:"column:subscription_id;size:36;not null;index"`
	// PaymentID is unique: a payment is credited to the admin ledger at most once.
	PaymentID   string `json:"payment_id" gorm:"column:payment_id;size:36;not null;uniqueIndex"`
	OrderID     string `json:"order_id" gorm:"column:order_id;size:64;not null"`
	Description string `json:"description" gorm:"column:description;type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;index"`
}

func (AdminCommissionEntry) TableName() string {
	return "admin_commission_entries"
}
