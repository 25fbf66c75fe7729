package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carelink/carewallet/internal/models"
)

// InsertEarning relies on the (booking_kind, booking_id) unique index, so concurrent
// credits of one booking race inside the database, never in application code.
func (db *DB) InsertEarning(ctx context.Context, entry *models.EarningEntry) (*models.EarningEntry, bool, error) {
	res := db.Conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_kind"}, {Name: "booking_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to insert earning entry: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return entry, true, nil
	}

	var existing models.EarningEntry
	if err := db.Conn.WithContext(ctx).
		Where("booking_kind = ? AND booking_id = ?", entry.BookingKind, entry.BookingID).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load existing earning entry: %w", err)
	}
	return &existing, false, nil
}

func (db *DB) GetBalance(ctx context.Context, provider models.ProviderRef) (*models.Balance, error) {
	return providerBalance(db.Conn.WithContext(ctx), provider)
}

func (db *DB) ListEarnings(ctx context.Context, provider models.ProviderRef, limit, offset int) ([]*models.EarningEntry, int64, error) {
	owned := func(q *gorm.DB) *gorm.DB {
		return q.Where("provider_role = ? AND provider_id = ?", provider.Role, provider.ID)
	}

	var total int64
	if err := db.Conn.WithContext(ctx).Model(&models.EarningEntry{}).Scopes(owned).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count earning entries: %w", err)
	}

	var entries []*models.EarningEntry
	if err := db.Conn.WithContext(ctx).Scopes(owned).Order("credited_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list earning entries: %w", err)
	}
	return entries, total, nil
}

type earningSums struct {
	Gross      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

type statusSum struct {
	Status models.WithdrawalStatus
	Total  decimal.Decimal
}

// providerBalance derives a provider's balance from the ledger and its withdrawals.
// It runs on whatever tx is given, so it sees the caller's locks.
func providerBalance(tx *gorm.DB, provider models.ProviderRef) (*models.Balance, error) {
	var sums earningSums
	if err := tx.Model(&models.EarningEntry{}).
		Select("COALESCE(SUM(gross_amount), 0) AS gross, COALESCE(SUM(commission_amount), 0) AS commission, COALESCE(SUM(net_amount), 0) AS net").
		Where("provider_role = ? AND provider_id = ?", provider.Role, provider.ID).
		Scan(&sums).Error; err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}

	var byStatus []statusSum
	if err := tx.Model(&models.WithdrawalRequest{}).
		Select("status, COALESCE(SUM(amount), 0) AS total").
		Where("provider_role = ? AND provider_id = ?", provider.Role, provider.ID).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	balance := &models.Balance{
		TotalGross:              sums.Gross.Round(2),
		TotalCommission:         sums.Commission.Round(2),
		TotalNet:                sums.Net.Round(2),
		TotalWithdrawn:          decimal.Zero,
		PendingWithdrawalAmount: decimal.Zero,
	}
	for _, s := range byStatus {
		switch {
		case s.Status == models.WithdrawalPaid:
			balance.TotalWithdrawn = balance.TotalWithdrawn.Add(s.Total)
		case s.Status.Commits():
			balance.PendingWithdrawalAmount = balance.PendingWithdrawalAmount.Add(s.Total)
		}
	}
	balance.TotalWithdrawn = balance.TotalWithdrawn.Round(2)
	balance.PendingWithdrawalAmount = balance.PendingWithdrawalAmount.Round(2)
	balance.ComputeAvailable()
	return balance, nil
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
