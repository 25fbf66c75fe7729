package models

import "time"

// ProviderWallet is the per-provider row that withdrawal creation locks on.
// Balances are never stored here; they are always derived from the ledger.
type ProviderWallet struct {
	// ProviderRole and ProviderID identify the owning provider.
	ProviderRole Role   `json:"provider_role" gorm:"column:provider_role;primaryKey;size:16"`
	ProviderID   string `json:"provider_id" gorm:"column:provider_id;primaryKey;size:64"`
	// Currency is the currency the wallet settles in.
	Currency string `json:"currency" gorm:"column:currency;size:3;not null"`
	// LastWithdrawalAt is when the provider last requested a withdrawal.
	LastWithdrawalAt *time.Time `json:"last_withdrawal_at,omitempty" gorm:"column:last_withdrawal_at"`
	// CreatedAt is when the wallet row was first created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (ProviderWallet) TableName() string {
	return "provider_wallets"
}
