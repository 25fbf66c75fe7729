package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/carelink/carewallet/internal/models"
)

// CreateWithdrawal serializes withdrawal creation per provider on the provider_wallets
// row, so the balance check and the insert cannot interleave with another request.
func (db *DB) CreateWithdrawal(ctx context.Context, request *models.WithdrawalRequest, check func(balance *models.Balance) error) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet := models.ProviderWallet{
			ProviderRole: request.ProviderRole,
			ProviderID:   request.ProviderID,
			Currency:     request.Currency,
			CreatedAt:    request.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&wallet).Error; err != nil {
			return fmt.Errorf("failed to create provider wallet: %w", err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider_role = ? AND provider_id = ?", request.ProviderRole, request.ProviderID).
			First(&wallet).Error; err != nil {
			return fmt.Errorf("failed to lock provider wallet: %w", err)
		}

		balance, err := providerBalance(tx, request.Provider())
		if err != nil {
			return err
		}
		if err := check(balance); err != nil {
			return err
		}

		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("failed to create withdrawal request: %w", err)
		}
		if err := tx.Model(&models.ProviderWallet{}).
			Where("provider_role = ? AND provider_id = ?", request.ProviderRole, request.ProviderID).
			Update("last_withdrawal_at", request.CreatedAt).Error; err != nil {
			return fmt.Errorf("failed to touch provider wallet: %w", err)
		}
		return nil
	})
}

func (db *DB) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		if notFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &request, nil
}

func (db *DB) UpdateWithdrawal(ctx context.Context, id string, mutate func(request *models.WithdrawalRequest) error) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&request).Error; err != nil {
			if notFound(err) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to load withdrawal request: %w", err)
		}

		previous := request.Status
		if err := mutate(&request); err != nil {
			return err
		}

		// Struct updates go through the json serializer of status_history.
		res := tx.Model(&request).
			Where("status = ?", previous).
			Select("status", "admin_note", "payout_reference", "processed_at", "processed_by", "status_history", "updated_at").
			Updates(&request)
		if res.Error != nil {
			return fmt.Errorf("failed to update withdrawal request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrStaleState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (db *DB) ListWithdrawals(ctx context.Context, provider *models.ProviderRef, filter models.WithdrawalFilter, limit, offset int) ([]*models.WithdrawalRequest, int64, error) {
	filtered := func(q *gorm.DB) *gorm.DB {
		if provider != nil {
			q = q.Where("provider_role = ? AND provider_id = ?", provider.Role, provider.ID)
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}
		if filter.Role != nil {
			q = q.Where("provider_role = ?", *filter.Role)
		}
		return q
	}

	var total int64
	if err := db.Conn.WithContext(ctx).Model(&models.WithdrawalRequest{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}

	var requests []*models.WithdrawalRequest
	if err := db.Conn.WithContext(ctx).Scopes(filtered).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return requests, total, nil
}
