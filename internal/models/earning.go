package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarningEntry is one immutable ledger line crediting a provider for a completed booking.
type EarningEntry struct {
	// ID is the unique identifier of the entry.
	ID string `json:"id" gorm:"column:id;primaryKey;size:36"`
	// ProviderRole and ProviderID identify the credited provider.
	ProviderRole Role   `json:"provider_role" gorm:"column:provider_role;size:16;not null;index:idx_earning_provider,priority:1"`
	ProviderID   string `json:"provider_id" gorm:"column:provider_id;size:64;not null;index:idx_earning_provider,priority:2"`
	// PatientID is the patient who paid for the booking.
	PatientID string `json:"patient_id" gorm:"column:patient_id;size:64;not null"`
	// BookingKind and BookingID are unique together: one credit per booking.
	BookingKind BookingKind `json:"booking_kind" gorm:"column:booking_kind;size:16;not null;uniqueIndex:ux_earning_booking,priority:1"`
	BookingID   string      `json:"booking_id" gorm:"column:booking_id;size:64;not null;uniqueIndex:ux_earning_booking,priority:2"`

	GrossAmount      decimal.Decimal `json:"gross_amount" gorm:"column:gross_amount;type:numeric(14,2);not null"`
	CommissionRate   decimal.Decimal `json:"commission_rate" gorm:"column:commission_rate;type:numeric(6,4);not null"`
	CommissionAmount decimal.Decimal `json:"commission_amount" gorm:"column:commission_amount;type:numeric(14,2);not null"`
	NetAmount        decimal.Decimal `json:"net_amount" gorm:"column:net_amount;type:numeric(14,2);not null"`
	Currency         string          `json:"currency" gorm:"column:currency;size:3;not null"`

	// PaymentID references the originating payment. Legacy entries may not have one.
	PaymentID *string `json:"payment_id,omitempty" gorm:"column:payment_id;size:64;index"`
	// CreditedAt is when the booking became billable.
	CreditedAt time.Time `json:"credited_at" gorm:"column:credited_at;not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (EarningEntry) TableName() string {
	return "earning_entries"
}

func (e *EarningEntry) Provider() ProviderRef {
	return ProviderRef{Role: e.ProviderRole, ID: e.ProviderID}
}

func (e *EarningEntry) Booking() BookingRef {
	return BookingRef{Kind: e.BookingKind, ID: e.BookingID}
}

// Balance is the derived wallet position of a provider.
type Balance struct {
	TotalGross              decimal.Decimal `json:"total_gross"`
	TotalCommission         decimal.Decimal `json:"total_commission"`
	TotalNet                decimal.Decimal `json:"total_net"`
	TotalWithdrawn          decimal.Decimal `json:"total_withdrawn"`
	PendingWithdrawalAmount decimal.Decimal `json:"pending_withdrawal_amount"`
	AvailableBalance        decimal.Decimal `json:"available_balance"`
}

// ComputeAvailable fills AvailableBalance as net minus paid minus committed, floored at zero.
func (b *Balance) ComputeAvailable() {
	available := b.TotalNet.Sub(b.TotalWithdrawn).Sub(b.PendingWithdrawalAmount)
	if available.IsNegative() {
		available = decimal.Zero
	}
	b.AvailableBalance = available
}
