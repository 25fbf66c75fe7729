package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carelink/carewallet/internal/models"
)

func (db *DB) GetActivePlan(ctx context.Context) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := db.Conn.WithContext(ctx).Where("active = ?", true).Order("created_at DESC").First(&plan).Error; err != nil {
		if notFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active plan: %w", err)
	}
	return &plan, nil
}

func (db *DB) SavePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if plan.Active {
			if err := tx.Model(&models.SubscriptionPlan{}).Where("active = ?", true).Update("active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate plans: %w", err)
			}
		}
		if err := tx.Create(plan).Error; err != nil {
			return fmt.Errorf("failed to create plan: %w", err)
		}
		return nil
	})
}

func (db *DB) FindActiveSubscription(ctx context.Context, subscriber models.ProviderRef, at time.Time) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := db.Conn.WithContext(ctx).
		Where("subscriber_role = ? AND subscriber_id = ? AND status = ? AND ends_at > ?",
			subscriber.Role, subscriber.ID, models.SubscriptionActive, at).
		Order("ends_at DESC").
		First(&subscription).Error; err != nil {
		if notFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return &subscription, nil
}

func (db *DB) CreateSubscriptionOrder(ctx context.Context, subscription *models.Subscription, payment *models.Payment) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(subscription).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
}

func (db *DB) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&subscription).Error; err != nil {
		if notFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &subscription, nil
}

func (db *DB) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.Conn.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if notFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// FailSubscriptionPayment only touches rows that are still pending, so a late
// forged callback can never undo an activation.
func (db *DB) FailSubscriptionPayment(ctx context.Context, failure models.PaymentFailure) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", failure.PaymentID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":             models.PaymentFailed,
				"gateway_payment_id": failure.GatewayPaymentID,
				"signature":          failure.Signature,
				"failure_reason":     failure.Reason,
				"updated_at":         failure.At,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		if err := tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", failure.SubscriptionID, models.SubscriptionPending).
			Updates(map[string]interface{}{
				"status":        models.SubscriptionCancelled,
				"cancel_reason": failure.Reason,
				"updated_at":    failure.At,
			}).Error; err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		return nil
	})
}

// ActivateSubscription applies a verified payment: payment first, then the
// subscription, then the admin commission. Each step is guarded by stored state so
// the whole call can be replayed.
func (db *DB) ActivateSubscription(ctx context.Context, activation models.Activation) (*models.Subscription, bool, error) {
	var subscription models.Subscription
	activated := false
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", activation.SubscriptionID).
			First(&subscription).Error; err != nil {
			if notFound(err) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if subscription.Status == models.SubscriptionActive {
			return nil
		}
		if subscription.Status != models.SubscriptionPending {
			return models.ErrStaleState
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", activation.PaymentID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":             models.PaymentSuccess,
				"gateway_payment_id": activation.GatewayPaymentID,
				"signature":          activation.Signature,
				"verified_at":        activation.StartsAt,
				"updated_at":         activation.StartsAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark payment successful: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var payment models.Payment
			if err := tx.Where("id = ?", activation.PaymentID).First(&payment).Error; err != nil {
				return fmt.Errorf("failed to reload payment: %w", err)
			}
			if payment.Status != models.PaymentSuccess {
				return models.ErrStaleState
			}
		}

		res = tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", subscription.ID, models.SubscriptionPending).
			Updates(map[string]interface{}{
				"status":     models.SubscriptionActive,
				"starts_at":  activation.StartsAt,
				"ends_at":    activation.EndsAt,
				"updated_at": activation.StartsAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to activate subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrStaleState
		}

		if activation.Commission != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "payment_id"}},
				DoNothing: true,
			}).Create(activation.Commission).Error; err != nil {
				return fmt.Errorf("failed to record admin commission: %w", err)
			}
		}

		if err := tx.Where("id = ?", subscription.ID).First(&subscription).Error; err != nil {
			return fmt.Errorf("failed to reload subscription: %w", err)
		}
		activated = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &subscription, activated, nil
}

func (db *DB) ListSubscriptions(ctx context.Context, subscriber models.ProviderRef, limit, offset int) ([]*models.Subscription, int64, error) {
	owned := func(q *gorm.DB) *gorm.DB {
		return q.Where("subscriber_role = ? AND subscriber_id = ?", subscriber.Role, subscriber.ID)
	}

	var total int64
	if err := db.Conn.WithContext(ctx).Model(&models.Subscription{}).Scopes(owned).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var subscriptions []*models.Subscription
	if err := db.Conn.WithContext(ctx).Scopes(owned).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&subscriptions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subscriptions, total, nil
}

func (db *DB) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res := db.Conn.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND ends_at <= ?", models.SubscriptionActive, now).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
