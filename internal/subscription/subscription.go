// Package subscription sells provider subscriptions through the payment gateway and
// activates them once the gateway confirmation is verified.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/metrics"
	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/notificator"
	"github.com/carelink/carewallet/pkg/logger"
	"github.com/carelink/carewallet/pkg/pagination"
)

type Service struct {
	logger *logger.Logger

	repo      models.SubscriptionRepository
	gateway   models.PaymentGateway
	directory models.AccountDirectory
	events    models.EventPublisher
	notifier  models.OperatorNotifier
	metrics   *metrics.Metrics

	now func() time.Time
}

func NewService(
	repo models.SubscriptionRepository,
	gateway models.PaymentGateway,
	directory models.AccountDirectory,
	events models.EventPublisher,
	notifier models.OperatorNotifier,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		logger:    logger.Named("subscription"),
		repo:      repo,
		gateway:   gateway,
		directory: directory,
		events:    events,
		notifier:  notifier,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Plan returns the plan currently offered to subscribers.
func (s *Service) Plan(ctx context.Context) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.GetActivePlan(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("no subscription plan is currently offered")
	}
	return plan, err
}

// SeedPlan creates an active plan from tiers unless one is already active.
func (s *Service) SeedPlan(ctx context.Context, name, currency string, tiers []models.DurationTier) (*models.SubscriptionPlan, bool, error) {
	existing, err := s.repo.GetActivePlan(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}
	if len(tiers) == 0 {
		return nil, false, apperr.Validation("a plan needs at least one duration tier")
	}

	now := s.now()
	plan := &models.SubscriptionPlan{
		ID:        uuid.NewString(),
		Name:      name,
		Currency:  currency,
		Durations: tiers,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, false, err
	}
	s.logger.Infow("Subscription plan seeded", "plan_id", plan.ID, "name", name, "tiers", len(tiers))
	return plan, true, nil
}

// Order is what the checkout client needs to collect a payment.
type Order struct {
	Subscription *models.Subscription `json:"subscription"`
	Order        *models.GatewayOrder `json:"order"`
	KeyID        string               `json:"key_id"`
}

// CreateOrder opens a gateway order for the chosen tier and records the pending
// subscription and payment. An already active subscription is left untouched and
// referenced as renewedFrom.
func (s *Service) CreateOrder(ctx context.Context, subscriber models.Identity, durationKey string) (*Order, error) {
	if !subscriber.Role.IsProvider() {
		return nil, apperr.Forbidden("only doctors, laboratories and pharmacies can subscribe")
	}
	durationKey = strings.TrimSpace(durationKey)
	if durationKey == "" {
		return nil, apperr.Validation("durationKey is required")
	}

	approved, err := s.directory.IsApproved(ctx, subscriber.AsProvider())
	if err != nil {
		s.logger.Errorw("Failed to check account approval", "subscriber", subscriber.AsProvider().String(), "error", err)
		return nil, fmt.Errorf("failed to check account approval: %w", err)
	}
	if !approved {
		return nil, apperr.Forbidden("your account must be approved before subscribing")
	}

	plan, err := s.Plan(ctx)
	if err != nil {
		return nil, err
	}
	tier, ok := plan.Tier(durationKey)
	if !ok {
		return nil, apperr.Validation("unknown durationKey %q", durationKey)
	}

	now := s.now()
	var renewedFrom *string
	current, err := s.repo.FindActiveSubscription(ctx, subscriber.AsProvider(), now)
	switch {
	case err == nil:
		renewedFrom = &current.ID
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	subscriptionID := uuid.NewString()
	order, err := s.gateway.CreateOrder(ctx, tier.Price, plan.Currency, subscriptionID, map[string]string{
		"subscription_id": subscriptionID,
		"subscriber":      subscriber.AsProvider().String(),
		"duration":        tier.Key,
	})
	if err != nil {
		s.logger.Errorw("Failed to create gateway order", "subscription_id", subscriptionID, "error", err)
		return nil, err
	}

	sub := &models.Subscription{
		ID:             subscriptionID,
		SubscriberRole: subscriber.Role,
		SubscriberID:   subscriber.ID,
		PlanID:         plan.ID,
		DurationKey:    tier.Key,
		DurationDays:   tier.Days,
		Amount:         tier.Price,
		Currency:       plan.Currency,
		Status:         models.SubscriptionPending,
		OrderID:        order.ID,
		RenewedFrom:    renewedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	payment := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Amount:    tier.Price,
		Currency:  plan.Currency,
		Status:    models.PaymentPending,
		Purpose:   models.PaymentPurposeSubscription,
		OwnerRole: subscriber.Role,
		OwnerID:   subscriber.ID,
		Metadata: datatypes.JSONMap{
			"subscription_id": subscriptionID,
			"plan_id":         plan.ID,
			"duration_key":    tier.Key,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSubscriptionOrder(ctx, sub, payment); err != nil {
		s.logger.Errorw("Failed to store subscription order", "subscription_id", subscriptionID, "order_id", order.ID, "error", err)
		return nil, err
	}

	s.logger.Infow("Subscription order created",
		"subscription_id", sub.ID,
		"order_id", order.ID,
		"subscriber", subscriber.AsProvider().String(),
		"duration", tier.Key)
	return &Order{Subscription: sub, Order: order, KeyID: s.gateway.KeyID()}, nil
}

// VerifyInput is the gateway confirmation relayed by the checkout client.
type VerifyInput struct {
	SubscriptionID string
	OrderID        string
	PaymentID      string
	Signature      string
}

// VerifyAndActivate checks a gateway confirmation and activates the subscription.
// Replaying it on an active subscription returns the subscription unchanged.
func (s *Service) VerifyAndActivate(ctx context.Context, in VerifyInput, subscriber models.Identity) (*models.Subscription, error) {
	if in.SubscriptionID == "" || in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, apperr.Validation("subscriptionId, orderId, paymentId and signature are required")
	}

	sub, err := s.repo.GetSubscription(ctx, in.SubscriptionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("subscription %s not found", in.SubscriptionID)
	}
	if err != nil {
		return nil, err
	}
	if sub.SubscriberID != subscriber.ID || sub.SubscriberRole != subscriber.Role {
		return nil, apperr.Forbidden("subscription belongs to another account")
	}

	switch sub.Status {
	case models.SubscriptionActive:
		s.metrics.SubscriptionActivated(false)
		return sub, nil
	case models.SubscriptionCancelled, models.SubscriptionExpired:
		return nil, apperr.InvalidStateTransition(string(sub.Status), string(models.SubscriptionActive),
			fmt.Sprintf("subscription is %s and cannot be activated", sub.Status))
	}

	log := s.logger.With("subscription_id", sub.ID, "order_id", in.OrderID, "payment_id", in.PaymentID)

	if in.OrderID != sub.OrderID {
		log.Warnw("Order id mismatch on verification", "expected_order_id", sub.OrderID)
		return nil, apperr.OrderMismatch("orderId does not match this subscription")
	}

	payment, err := s.repo.GetPaymentByOrderID(ctx, in.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("payment for order %s not found", in.OrderID)
	}
	if err != nil {
		return nil, err
	}

	if payment.IsTerminal() {
		if payment.Status == models.PaymentFailed {
			return nil, apperr.InvalidStateTransition(string(payment.Status), string(models.PaymentSuccess),
				"payment for this order has already failed")
		}
		// A success payment is never re-verified. Only the confirmation it was
		// verified with may finish an interrupted activation.
		if payment.GatewayPaymentID == nil || *payment.GatewayPaymentID != in.PaymentID {
			return nil, apperr.InvalidStateTransition(string(payment.Status), string(models.PaymentSuccess),
				"payment for this order was settled by another confirmation")
		}
	} else {
		ok, err := s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature)
		if err != nil {
			log.Errorw("Cannot verify payment signature", "error", err)
			return nil, err
		}
		if !ok {
			return nil, s.rejectSignature(ctx, sub, payment, in, log)
		}
	}

	now := s.now()
	activated, created, err := s.repo.ActivateSubscription(ctx, models.Activation{
		SubscriptionID:   sub.ID,
		PaymentID:        payment.ID,
		GatewayPaymentID: in.PaymentID,
		Signature:        in.Signature,
		StartsAt:         now,
		EndsAt:           now.AddDate(0, 0, sub.DurationDays),
		Commission: &models.AdminCommissionEntry{
			ID:             uuid.NewString(),
			Amount:         sub.Amount,
			Currency:       sub.Currency,
			Role:           sub.SubscriberRole,
			SubscriberID:   sub.SubscriberID,
			SubscriptionID: sub.ID,
			PaymentID:      payment.ID,
			OrderID:        sub.OrderID,
			Description:    fmt.Sprintf("%s subscription (%d days)", sub.DurationKey, sub.DurationDays),
			CreatedAt:      now,
		},
	})
	if errors.Is(err, models.ErrStaleState) {
		// Lost a race: another call settled the subscription first.
		current, getErr := s.repo.GetSubscription(ctx, sub.ID)
		if getErr != nil {
			log.Errorw("Failed to reload subscription after concurrent change", "error", getErr)
			return nil, getErr
		}
		if current.Status == models.SubscriptionActive {
			s.metrics.SubscriptionActivated(false)
			return current, nil
		}
		return nil, apperr.InvalidStateTransition(string(sub.Status), string(models.SubscriptionActive),
			"subscription changed while it was being activated")
	}
	if err != nil {
		log.Errorw("Failed to activate subscription", "error", err)
		return nil, err
	}

	s.metrics.SubscriptionActivated(created)
	if created {
		log.Infow("Subscription activated", "ends_at", activated.EndsAt)
		s.publish(ctx, models.EventSubscriptionActivated, activated)
	}
	return activated, nil
}

func (s *Service) rejectSignature(ctx context.Context, sub *models.Subscription, payment *models.Payment, in VerifyInput, log *logger.Logger) error {
	s.metrics.SignatureFailed()
	log.Warnw("Payment signature verification failed", "subscriber", sub.Subscriber().String())

	reason := "payment signature verification failed"
	if err := s.repo.FailSubscriptionPayment(ctx, models.PaymentFailure{
		SubscriptionID:   sub.ID,
		PaymentID:        payment.ID,
		GatewayPaymentID: in.PaymentID,
		Signature:        in.Signature,
		Reason:           reason,
		At:               s.now(),
	}); err != nil {
		log.Errorw("Failed to record signature failure", "error", err)
		return err
	}

	s.notifier.NotifyOperators(ctx, notificator.SignatureFailureMessage(sub, in.PaymentID))
	s.publish(ctx, models.EventSubscriptionCancelled, map[string]string{
		"subscription_id": sub.ID,
		"order_id":        sub.OrderID,
		"reason":          reason,
	})
	return apperr.InvalidSignature(reason)
}

// Current returns the subscriber's active subscription, or nil when there is none.
func (s *Service) Current(ctx context.Context, subscriber models.ProviderRef) (*models.Subscription, error) {
	sub, err := s.repo.FindActiveSubscription(ctx, subscriber, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// History pages through every subscription of subscriber, newest first.
func (s *Service) History(ctx context.Context, subscriber models.ProviderRef, page pagination.Params) ([]*models.Subscription, int64, error) {
	return s.repo.ListSubscriptions(ctx, subscriber, page.Limit, page.Offset)
}

// ExpireDue flips active subscriptions whose period has ended. It is safe to run
// concurrently with itself and with activation.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.ExpireSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}
	s.metrics.SubscriptionsExpired(n)
	if n > 0 {
		s.logger.Infow("Subscriptions expired", "count", n)
		s.publish(ctx, models.EventSubscriptionsExpired, map[string]interface{}{
			"count":      n,
			"expired_at": now,
		})
	}
	return n, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if err := s.events.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warnw("Failed to publish event", "routing_key", routingKey, "error", err)
	}
}
