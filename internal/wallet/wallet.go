// Package wallet credits provider earnings and settles their withdrawal requests.
package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/commission"
	"github.com/carelink/carewallet/internal/metrics"
	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/notificator"
	"github.com/carelink/carewallet/pkg/logger"
	"github.com/carelink/carewallet/pkg/pagination"
	"github.com/carelink/carewallet/pkg/validation"
)

const insufficientBalanceMessage = "Requested amount exceeds available balance"

// Repository is the storage the wallet needs.
type Repository interface {
	models.LedgerRepository
	models.WithdrawalRepository
}

type Service struct {
	logger *logger.Logger

	repo     Repository
	calc     *commission.Calculator
	events   models.EventPublisher
	notifier models.OperatorNotifier
	metrics  *metrics.Metrics
	currency string

	now func() time.Time
}

func NewService(
	repo Repository,
	calc *commission.Calculator,
	events models.EventPublisher,
	notifier models.OperatorNotifier,
	metrics *metrics.Metrics,
	currency string,
	logger *logger.Logger,
) *Service {
	return &Service{
		logger:   logger.Named("wallet"),
		repo:     repo,
		calc:     calc,
		events:   events,
		notifier: notifier,
		metrics:  metrics,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreditInput describes a completed booking to credit.
type CreditInput struct {
	Provider    models.ProviderRef
	PatientID   string
	Booking     models.BookingRef
	GrossAmount decimal.Decimal
	PaymentID   *string
	// CreditedAt defaults to now.
	CreditedAt time.Time
}

// Credit records the provider's earning for a completed booking. Crediting the same
// booking again returns the stored entry and false.
func (s *Service) Credit(ctx context.Context, in CreditInput) (*models.EarningEntry, bool, error) {
	if !in.Provider.Role.IsProvider() || strings.TrimSpace(in.Provider.ID) == "" {
		return nil, false, apperr.Validation("a doctor, laboratory or pharmacy provider is required")
	}
	if !in.Booking.Kind.Valid() || strings.TrimSpace(in.Booking.ID) == "" {
		return nil, false, apperr.Validation("a booking of kind appointment, lab_order or pharmacy_order is required")
	}
	if strings.TrimSpace(in.PatientID) == "" {
		return nil, false, apperr.Validation("patientId is required")
	}

	split, err := s.calc.Split(in.GrossAmount, in.Provider.Role)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	creditedAt := in.CreditedAt.UTC()
	if in.CreditedAt.IsZero() {
		creditedAt = now
	}

	entry := &models.EarningEntry{
		ID:               uuid.NewString(),
		ProviderRole:     in.Provider.Role,
		ProviderID:       in.Provider.ID,
		PatientID:        in.PatientID,
		BookingKind:      in.Booking.Kind,
		BookingID:        in.Booking.ID,
		GrossAmount:      split.Gross,
		CommissionRate:   split.Rate,
		CommissionAmount: split.Commission,
		NetAmount:        split.Net,
		Currency:         s.currency,
		PaymentID:        in.PaymentID,
		CreditedAt:       creditedAt,
		CreatedAt:        now,
	}

	stored, created, err := s.repo.InsertEarning(ctx, entry)
	if err != nil {
		s.logger.Errorw("Failed to credit earning", "booking", in.Booking.String(), "provider", in.Provider.String(), "error", err)
		return nil, false, err
	}
	s.metrics.EarningCredited(created)

	if !created {
		if !stored.GrossAmount.Equal(split.Gross) || stored.Provider() != in.Provider {
			// Entries are immutable; a conflicting retry needs an operator to reconcile.
			s.logger.Warnw("Booking already credited with different terms",
				"booking", stored.Booking().String(),
				"entry_id", stored.ID,
				"stored_provider", stored.Provider().String(),
				"stored_gross", stored.GrossAmount.StringFixed(2),
				"requested_provider", in.Provider.String(),
				"requested_gross", split.Gross.StringFixed(2))
			return stored, false, nil
		}
		s.logger.Infow("Booking already credited", "booking", stored.Booking().String(), "entry_id", stored.ID)
		return stored, false, nil
	}
	s.logger.Infow("Earning credited",
		"entry_id", stored.ID,
		"booking", in.Booking.String(),
		"provider", in.Provider.String(),
		"gross", split.Gross.StringFixed(2),
		"net", split.Net.StringFixed(2))
	s.publish(ctx, models.EventEarningCredited, stored)
	return stored, true, nil
}

// Summary returns the provider's derived balance.
func (s *Service) Summary(ctx context.Context, provider models.ProviderRef) (*models.Balance, error) {
	return s.repo.GetBalance(ctx, provider)
}

// ListTransactions pages through the provider's earnings, newest credit first.
func (s *Service) ListTransactions(ctx context.Context, provider models.ProviderRef, page pagination.Params) ([]*models.EarningEntry, int64, error) {
	return s.repo.ListEarnings(ctx, provider, page.Limit, page.Offset)
}

// WithdrawalInput is a provider's withdrawal request body.
type WithdrawalInput struct {
	Amount       decimal.Decimal
	PayoutMethod models.PayoutMethod
	Notes        string
}

// RequestWithdrawal creates a pending withdrawal if amount fits the available
// balance. The balance check and the insert share one transaction.
func (s *Service) RequestWithdrawal(ctx context.Context, provider models.Identity, in WithdrawalInput) (*models.WithdrawalRequest, error) {
	if !provider.Role.IsProvider() {
		return nil, apperr.Forbidden("only providers can request withdrawals")
	}
	if !in.Amount.IsPositive() {
		s.metrics.WithdrawalRequested("invalid")
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		s.metrics.WithdrawalRequested("invalid")
		return nil, apperr.Validation("amount must have at most two decimal places")
	}
	methodType := string(in.PayoutMethod.Type)
	if err := validation.ValidatePayoutMethod(methodType, in.PayoutMethod.Details); err != nil {
		s.metrics.WithdrawalRequested("invalid")
		return nil, apperr.Validation(err.Error())
	}

	now := s.now()
	request := &models.WithdrawalRequest{
		ID:           uuid.NewString(),
		ProviderRole: provider.Role,
		ProviderID:   provider.ID,
		Amount:       in.Amount.Round(2),
		Currency:     s.currency,
		PayoutMethod: models.PayoutMethod{
			Type:    in.PayoutMethod.Type,
			Details: validation.NormalizePayoutDetails(methodType, in.PayoutMethod.Details),
		},
		Notes:  strings.TrimSpace(in.Notes),
		Status: models.WithdrawalPending,
		StatusHistory: []models.StatusChange{{
			Status:    models.WithdrawalPending,
			Actor:     provider.ID,
			ActorRole: provider.Role,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.repo.CreateWithdrawal(ctx, request, func(balance *models.Balance) error {
		if request.Amount.GreaterThan(balance.AvailableBalance) {
			return apperr.InsufficientBalance(insufficientBalanceMessage)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientBalance) {
			s.metrics.WithdrawalRequested("insufficient_balance")
			s.logger.Infow("Withdrawal refused", "provider", provider.AsProvider().String(), "amount", request.Amount.StringFixed(2))
			return nil, err
		}
		s.logger.Errorw("Failed to create withdrawal request", "provider", provider.AsProvider().String(), "error", err)
		return nil, err
	}

	s.metrics.WithdrawalRequested("accepted")
	s.logger.Infow("Withdrawal requested", "withdrawal_id", request.ID, "provider", provider.AsProvider().String(), "amount", request.Amount.StringFixed(2))
	s.publish(ctx, models.EventWithdrawalRequested, request)
	s.notifier.NotifyOperators(ctx, notificator.WithdrawalRequestedMessage(request))
	return request, nil
}

// ListWithdrawals pages through the provider's own requests.
func (s *Service) ListWithdrawals(ctx context.Context, provider models.ProviderRef, page pagination.Params) ([]*models.WithdrawalRequest, int64, error) {
	return s.repo.ListWithdrawals(ctx, &provider, models.WithdrawalFilter{}, page.Limit, page.Offset)
}

// ListAllWithdrawals pages through every provider's requests for operators.
func (s *Service) ListAllWithdrawals(ctx context.Context, filter models.WithdrawalFilter, page pagination.Params) ([]*models.WithdrawalRequest, int64, error) {
	return s.repo.ListWithdrawals(ctx, nil, filter, page.Limit, page.Offset)
}

// GetWithdrawal loads one request. Providers only see their own; anyone else's
// reads as not found.
func (s *Service) GetWithdrawal(ctx context.Context, id string, viewer models.Identity) (*models.WithdrawalRequest, error) {
	request, err := s.repo.GetWithdrawal(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, apperr.NotFound("withdrawal request %s not found", id)
	case err != nil:
		s.logger.Errorw("Failed to load withdrawal", "withdrawal_id", id, "error", err)
		return nil, err
	}
	if viewer.Role != models.RoleAdmin && request.Provider() != viewer.AsProvider() {
		return nil, apperr.NotFound("withdrawal request %s not found", id)
	}
	return request, nil
}

// TransitionInput is an operator's transition request body.
type TransitionInput struct {
	Status          string
	AdminNote       string
	PayoutReference string
}

// StatusChangedEvent is published after an accepted transition.
type StatusChangedEvent struct {
	WithdrawalID    string                  `json:"withdrawal_id"`
	ProviderRole    models.Role             `json:"provider_role"`
	ProviderID      string                  `json:"provider_id"`
	Amount          decimal.Decimal         `json:"amount"`
	Currency        string                  `json:"currency"`
	From            models.WithdrawalStatus `json:"from"`
	To              models.WithdrawalStatus `json:"to"`
	PayoutReference *string                 `json:"payout_reference,omitempty"`
	Actor           string                  `json:"actor"`
}

// TransitionWithdrawal moves a request through its lifecycle on behalf of an operator.
func (s *Service) TransitionWithdrawal(ctx context.Context, id string, in TransitionInput, actor models.Identity) (*models.WithdrawalRequest, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only operators can change withdrawal status")
	}
	to, ok := models.ParseWithdrawalStatus(strings.TrimSpace(in.Status))
	if !ok {
		return nil, apperr.Validation("unknown withdrawal status %q", in.Status)
	}

	var from models.WithdrawalStatus
	updated, err := s.repo.UpdateWithdrawal(ctx, id, func(w *models.WithdrawalRequest) error {
		from = w.Status
		return applyTransition(w, Transition{
			Status:          to,
			AdminNote:       in.AdminNote,
			PayoutReference: in.PayoutReference,
			Actor:           actor,
			At:              s.now(),
		})
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, apperr.NotFound("withdrawal request %s not found", id)
	case errors.Is(err, models.ErrStaleState):
		return nil, apperr.InvalidStateTransition(string(from), string(to), "withdrawal request changed concurrently, reload and retry")
	case err != nil:
		if apperr.KindOf(err) == apperr.KindInternal {
			s.logger.Errorw("Failed to transition withdrawal", "withdrawal_id", id, "error", err)
		}
		return nil, err
	}

	s.metrics.WithdrawalTransitioned(string(to))
	s.logger.Infow("Withdrawal status changed", "withdrawal_id", id, "from", from, "to", to, "actor", actor.ID)
	s.publish(ctx, models.EventWithdrawalStatusChanged, StatusChangedEvent{
		WithdrawalID:    updated.ID,
		ProviderRole:    updated.ProviderRole,
		ProviderID:      updated.ProviderID,
		Amount:          updated.Amount,
		Currency:        updated.Currency,
		From:            from,
		To:              to,
		PayoutReference: updated.PayoutReference,
		Actor:           actor.ID,
	})
	return updated, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if err := s.events.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warnw("Failed to publish event", "routing_key", routingKey, "error", err)
	}
}
