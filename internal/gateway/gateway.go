// Package gateway talks to the card/UPI payment gateway: it opens orders for
// checkout and verifies the signature the gateway attaches to a confirmation.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

const DefaultBaseURL = "https://api.razorpay.com/v1"

// minorUnits is the number of minor units per major unit for every supported currency.
var minorUnits = decimal.NewFromInt(100)

type Client struct {
	BaseURL    string
	KeySecret  string
	HTTPClient *http.Client

	keyID  string
	logger *logger.Logger
}

var _ models.PaymentGateway = (*Client)(nil)

func NewClient(baseURL, keyID, keySecret string, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		KeySecret: keySecret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		keyID:  keyID,
		logger: logger.Named("gateway"),
	}
}

func (c *Client) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ErrorResponse is the error envelope returned by the gateway API.
type ErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// ToMinorUnits converts a major-unit amount to the gateway's integer representation.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Round(0).IntPart()
}

// CreateOrder opens a gateway order for amount, expressed in major units.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*models.GatewayOrder, error) {
	if !amount.IsPositive() {
		return nil, apperr.InvalidAmount("order amount must be greater than zero")
	}
	if c.keyID == "" || c.KeySecret == "" {
		return nil, apperr.Configuration("payment gateway credentials are not configured")
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   ToMinorUnits(amount),
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.KeySecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send order request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Description != "" {
			return nil, fmt.Errorf("gateway rejected order (status %d): %s: %s", resp.StatusCode, errResp.Error.Code, errResp.Error.Description)
		}
		return nil, fmt.Errorf("gateway rejected order with status %d", resp.StatusCode)
	}

	var order models.GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}
	c.logger.Debugw("gateway order created", "order_id", order.ID, "amount", order.Amount, "currency", order.Currency)
	return &order, nil
}

// VerifySignature recomputes HMAC-SHA256(orderID|paymentID) and compares it to
// signature in constant time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) (bool, error) {
	if c.KeySecret == "" {
		return false, apperr.Configuration("payment gateway secret is not configured")
	}
	expected := Sign(c.KeySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))), nil
}

// Sign returns the hex signature the gateway attaches to a confirmation.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
