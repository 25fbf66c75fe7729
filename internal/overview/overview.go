// Package overview computes read-only operator rollups over the provider ledger,
// withdrawals and subscription income. Nothing here writes.
package overview

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
	"github.com/carelink/carewallet/pkg/pagination"
)

type Service struct {
	logger *logger.Logger
	repo   models.OverviewRepository
	now    func() time.Time
}

func NewService(repo models.OverviewRepository, logger *logger.Logger) *Service {
	return &Service{
		logger: logger.Named("overview"),
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProviderSummary is one provider's wallet position.
type ProviderSummary struct {
	ProviderRole models.Role     `json:"provider_role"`
	ProviderID   string          `json:"provider_id"`
	Gross        decimal.Decimal `json:"total_gross"`
	Commission   decimal.Decimal `json:"total_commission"`
	Net          decimal.Decimal `json:"total_net"`
	Paid         decimal.Decimal `json:"total_withdrawn"`
	Pending      decimal.Decimal `json:"pending_withdrawal_amount"`
	Available    decimal.Decimal `json:"available_balance"`
}

// StatusTotal is the count and sum of withdrawals in one status.
type StatusTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PlatformTotals aggregates every provider plus subscription income.
type PlatformTotals struct {
	TotalGross      decimal.Decimal `json:"total_gross"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalNet        decimal.Decimal `json:"total_net"`
	TotalWithdrawn  decimal.Decimal `json:"total_withdrawn"`
	TotalPending    decimal.Decimal `json:"pending_withdrawal_amount"`
	TotalAvailable  decimal.Decimal `json:"available_balance"`
	Providers       int             `json:"providers"`
	EarningEntries  int64           `json:"earning_entries"`

	Withdrawals map[models.WithdrawalStatus]StatusTotal `json:"withdrawals"`

	SubscriptionRevenue  decimal.Decimal                     `json:"subscription_revenue"`
	SubscriptionPayments int64                               `json:"subscription_payments"`
	Subscriptions        map[models.SubscriptionStatus]int64 `json:"subscriptions"`

	// PlatformIncome is booking commission plus subscription revenue.
	PlatformIncome decimal.Decimal `json:"platform_income"`
}

// Overview is the operator dashboard rollup.
type Overview struct {
	Totals    PlatformTotals     `json:"totals"`
	Providers []*ProviderSummary `json:"providers"`
	Total     int64              `json:"total_providers"`
}

// Overview returns platform totals and one page of provider summaries. A role
// narrows both the totals and the providers; subscription figures stay global.
func (s *Service) Overview(ctx context.Context, role *models.Role, page pagination.Params) (*Overview, error) {
	earnings, err := s.repo.EarningTotalsByProvider(ctx, role)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.repo.WithdrawalTotalsByProvider(ctx, role)
	if err != nil {
		return nil, err
	}
	revenue, payments, err := s.repo.AdminCommissionTotal(ctx)
	if err != nil {
		return nil, err
	}
	subscriptions, err := s.repo.CountSubscriptionsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	summaries := summarize(earnings, withdrawals)

	totals := PlatformTotals{
		TotalGross:           decimal.Zero,
		TotalCommission:      decimal.Zero,
		TotalNet:             decimal.Zero,
		TotalWithdrawn:       decimal.Zero,
		TotalPending:         decimal.Zero,
		TotalAvailable:       decimal.Zero,
		Providers:            len(summaries),
		Withdrawals:          make(map[models.WithdrawalStatus]StatusTotal, len(models.WithdrawalStatuses)),
		SubscriptionRevenue:  revenue,
		SubscriptionPayments: payments,
		Subscriptions:        subscriptions,
	}
	for _, status := range models.WithdrawalStatuses {
		totals.Withdrawals[status] = StatusTotal{Amount: decimal.Zero}
	}
	for _, e := range earnings {
		totals.EarningEntries += e.Entries
	}
	for _, w := range withdrawals {
		t := totals.Withdrawals[w.Status]
		t.Count += w.Count
		t.Amount = t.Amount.Add(w.Amount)
		totals.Withdrawals[w.Status] = t
	}
	for _, p := range summaries {
		totals.TotalGross = totals.TotalGross.Add(p.Gross)
		totals.TotalCommission = totals.TotalCommission.Add(p.Commission)
		totals.TotalNet = totals.TotalNet.Add(p.Net)
		totals.TotalWithdrawn = totals.TotalWithdrawn.Add(p.Paid)
		totals.TotalPending = totals.TotalPending.Add(p.Pending)
		totals.TotalAvailable = totals.TotalAvailable.Add(p.Available)
	}
	totals.PlatformIncome = totals.TotalCommission.Add(revenue)

	return &Overview{
		Totals:    totals,
		Providers: paginate(summaries, page),
		Total:     int64(len(summaries)),
	}, nil
}

// summarize joins ledger and withdrawal rollups per provider, ordered by role then id.
func summarize(earnings []models.ProviderEarningTotals, withdrawals []models.ProviderWithdrawalTotals) []*ProviderSummary {
	byProvider := make(map[models.ProviderRef]*ProviderSummary)
	get := func(role models.Role, id string) *ProviderSummary {
		ref := models.ProviderRef{Role: role, ID: id}
		if p, ok := byProvider[ref]; ok {
			return p
		}
		p := &ProviderSummary{
			ProviderRole: role,
			ProviderID:   id,
			Gross:        decimal.Zero,
			Commission:   decimal.Zero,
			Net:          decimal.Zero,
			Paid:         decimal.Zero,
			Pending:      decimal.Zero,
		}
		byProvider[ref] = p
		return p
	}

	for _, e := range earnings {
		p := get(e.ProviderRole, e.ProviderID)
		p.Gross, p.Commission, p.Net = e.Gross, e.Commission, e.Net
	}
	for _, w := range withdrawals {
		p := get(w.ProviderRole, w.ProviderID)
		switch {
		case w.Status == models.WithdrawalPaid:
			p.Paid = p.Paid.Add(w.Amount)
		case w.Status.Commits():
			p.Pending = p.Pending.Add(w.Amount)
		}
	}

	out := make([]*ProviderSummary, 0, len(byProvider))
	for _, p := range byProvider {
		balance := models.Balance{TotalNet: p.Net, TotalWithdrawn: p.Paid, PendingWithdrawalAmount: p.Pending}
		balance.ComputeAvailable()
		p.Available = balance.AvailableBalance
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderRole != out[j].ProviderRole {
			return out[i].ProviderRole < out[j].ProviderRole
		}
		return out[i].ProviderID < out[j].ProviderID
	})
	return out
}

func paginate(summaries []*ProviderSummary, page pagination.Params) []*ProviderSummary {
	if page.Offset >= len(summaries) {
		return []*ProviderSummary{}
	}
	end := page.Offset + page.Limit
	if page.Limit <= 0 || end > len(summaries) {
		end = len(summaries)
	}
	return summaries[page.Offset:end]
}
