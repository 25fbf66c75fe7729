package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/carewallet/internal/models"
)

// AcquireLock takes or renews the named lease. An expired lease, or one already held
// by instanceID, is taken over in the same statement; the stored row then decides
// who holds it.
func (db *DB) AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res := db.Conn.WithContext(ctx).Exec(
		`INSERT INTO app_locks (lock_name, instance_id, acquired_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (lock_name) DO UPDATE SET
	instance_id = excluded.instance_id,
	acquired_at = excluded.acquired_at,
	expires_at = excluded.expires_at
WHERE app_locks.expires_at <= ? OR app_locks.instance_id = ?`,
		name, instanceID, now.Unix(), now.Add(ttl).Unix(), now.Unix(), instanceID,
	)
	if res.Error != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, res.Error)
	}

	var lock models.AppLock
	if err := db.Conn.WithContext(ctx).Where("lock_name = ?", name).First(&lock).Error; err != nil {
		return false, fmt.Errorf("failed to read lock %s: %w", name, err)
	}
	return lock.HeldBy(instanceID, now.Unix()), nil
}

func (db *DB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	if err := db.Conn.WithContext(ctx).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Delete(&models.AppLock{}).Error; err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
