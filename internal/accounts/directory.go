// Package accounts answers whether a provider account has passed onboarding review.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

const StatusApproved = "approved"

// AccountResponse is the body of GET {base}/accounts/{role}/{id}.
type AccountResponse struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

type cacheEntry struct {
	approved  bool
	expiresAt time.Time
}

// HTTPDirectory looks accounts up in the account service and caches the answer.
type HTTPDirectory struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	// In-memory cache
	cache      map[string]cacheEntry
	cacheMutex sync.RWMutex
}

var _ models.AccountDirectory = (*HTTPDirectory)(nil)

func NewHTTPDirectory(baseURL string, ttl time.Duration, logger *logger.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		logger:  logger.Named("accounts"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// IsApproved returns the cached answer when fresh, otherwise asks the account
// service. Unknown accounts are not approved.
func (d *HTTPDirectory) IsApproved(ctx context.Context, account models.ProviderRef) (bool, error) {
	key := account.String()

	d.cacheMutex.RLock()
	entry, ok := d.cache[key]
	d.cacheMutex.RUnlock()
	if ok && d.now().Before(entry.expiresAt) {
		return entry.approved, nil
	}

	approved, err := d.fetch(ctx, account)
	if err != nil {
		return false, err
	}

	if d.ttl > 0 {
		d.cacheMutex.Lock()
		d.cache[key] = cacheEntry{approved: approved, expiresAt: d.now().Add(d.ttl)}
		d.cacheMutex.Unlock()
	}
	return approved, nil
}

func (d *HTTPDirectory) fetch(ctx context.Context, account models.ProviderRef) (bool, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/%s", d.baseURL, url.PathEscape(string(account.Role)), url.PathEscape(account.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build account request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		d.logger.Debugw("account not found", "account", account.String())
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var body AccountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode account response: %w", err)
	}
	return strings.EqualFold(body.Status, StatusApproved), nil
}

// Invalidate drops the cached answer for account.
func (d *HTTPDirectory) Invalidate(account models.ProviderRef) {
	d.cacheMutex.Lock()
	delete(d.cache, account.String())
	d.cacheMutex.Unlock()
}

// StaticDirectory approves every account. It stands in for the account service in
// development.
type StaticDirectory struct{}

func (StaticDirectory) IsApproved(context.Context, models.ProviderRef) (bool, error) {
	return true, nil
}
