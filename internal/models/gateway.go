package models

import (
	"context"

	"github.com/shopspring/decimal"
)

// GatewayOrder is the order object returned by the payment gateway.
type GatewayOrder struct {
	ID string `json:"id"`
	// Amount is in the currency's minor unit.
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// PaymentGateway creates orders and checks payment confirmations.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) (bool, error)
	// KeyID is the public key the checkout client needs to open the order.
	KeyID() string
}
