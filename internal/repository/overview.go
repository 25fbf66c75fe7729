package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/models"
)

func (db *DB) EarningTotalsByProvider(ctx context.Context, role *models.Role) ([]models.ProviderEarningTotals, error) {
	query := db.Conn.WithContext(ctx).Model(&models.EarningEntry{}).
		Select("provider_role, provider_id, " +
			"COALESCE(SUM(gross_amount), 0) AS gross, " +
			"COALESCE(SUM(commission_amount), 0) AS commission, " +
			"COALESCE(SUM(net_amount), 0) AS net, " +
			"COUNT(*) AS entries")
	if role != nil {
		query = query.Where("provider_role = ?", *role)
	}

	var totals []models.ProviderEarningTotals
	if err := query.Group("provider_role, provider_id").Order("provider_role, provider_id").Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum earnings by provider: %w", err)
	}
	for i := range totals {
		totals[i].Gross = totals[i].Gross.Round(2)
		totals[i].Commission = totals[i].Commission.Round(2)
		totals[i].Net = totals[i].Net.Round(2)
	}
	return totals, nil
}

func (db *DB) WithdrawalTotalsByProvider(ctx context.Context, role *models.Role) ([]models.ProviderWithdrawalTotals, error) {
	query := db.Conn.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("provider_role, provider_id, status, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count")
	if role != nil {
		query = query.Where("provider_role = ?", *role)
	}

	var totals []models.ProviderWithdrawalTotals
	if err := query.Group("provider_role, provider_id, status").Order("provider_role, provider_id, status").Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals by provider: %w", err)
	}
	for i := range totals {
		totals[i].Amount = totals[i].Amount.Round(2)
	}
	return totals, nil
}

func (db *DB) AdminCommissionTotal(ctx context.Context) (decimal.Decimal, int64, error) {
	var row struct {
		Amount decimal.Decimal
		Count  int64
	}
	if err := db.Conn.WithContext(ctx).Model(&models.AdminCommissionEntry{}).
		Select("COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Scan(&row).Error; err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum admin commission: %w", err)
	}
	return row.Amount.Round(2), row.Count, nil
}

func (db *DB) CountSubscriptionsByStatus(ctx context.Context) (map[models.SubscriptionStatus]int64, error) {
	var rows []struct {
		Status models.SubscriptionStatus
		Count  int64
	}
	if err := db.Conn.WithContext(ctx).Model(&models.Subscription{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	counts := make(map[models.SubscriptionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// EarningsBetween reads only the amount columns of entries credited in [from, to).
func (db *DB) EarningsBetween(ctx context.Context, from, to time.Time) ([]models.EarningAmounts, error) {
	var rows []models.EarningAmounts
	if err := db.Conn.WithContext(ctx).Model(&models.EarningEntry{}).
		Select("credited_at, gross_amount, commission_amount, net_amount").
		Where("credited_at >= ? AND credited_at < ?", from, to).
		Order("credited_at").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list earnings in range: %w", err)
	}
	return rows, nil
}

func (db *DB) AdminCommissionsBetween(ctx context.Context, from, to time.Time) ([]models.CommissionAmount, error) {
	var rows []models.CommissionAmount
	if err := db.Conn.WithContext(ctx).Model(&models.AdminCommissionEntry{}).
		Select("created_at, amount").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin commission in range: %w", err)
	}
	return rows, nil
}
