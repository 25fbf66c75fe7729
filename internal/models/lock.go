package models

// LockSubscriptionExpiry names the lease guarding the subscription-expiry sweep.
const LockSubscriptionExpiry = "subscription_expiry_sweep"

// AppLock is a lease on a background job, held by one instance until ExpiresAt.
// Timestamps are unix seconds.
type AppLock struct {
	LockName   string `json:"lock_name" gorm:"column:lock_name;primaryKey;size:128"`
	InstanceID string `json:"instance_id" gorm:"column:instance_id;size:128;not null"`
	AcquiredAt int64  `json:"acquired_at" gorm:"column:acquired_at;not null"`
	ExpiresAt  int64  `json:"expires_at" gorm:"column:expires_at;not null;index"`
}

func (AppLock) TableName() string {
	return "app_locks"
}

// HeldBy reports whether instanceID owns a live lease at unix time now.
func (l *AppLock) HeldBy(instanceID string, now int64) bool {
	return l.InstanceID == instanceID && l.ExpiresAt > now
}
