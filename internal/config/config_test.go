package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_KEY_ID", "rzp_test_key")
	t.Setenv("GATEWAY_KEY_SECRET", "secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("POSTGRES_DB", "carewallet")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("ACCOUNT_DIRECTORY_URL", "http://accounts.internal")
	t.Setenv("DEVELOPMENT", "false")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Currency != "INR" || cfg.ExpirySweepSchedule != "@every 5m" || cfg.EventsExchange != "carewallet.events" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.AccountCacheTTL != 5*time.Minute || cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected durations: %s %s", cfg.AccountCacheTTL, cfg.RequestTimeout)
	}
	rates, err := cfg.Rates()
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	for _, role := range []models.Role{models.RoleDoctor, models.RoleLaboratory, models.RolePharmacy} {
		if !rates[role].Equal(decimal.RequireFromString("0.10")) {
			t.Errorf("%s rate = %s", role, rates[role])
		}
	}
	if cfg.InstanceID == "" {
		t.Fatal("instance id not defaulted")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CURRENCY", "usd")
	t.Setenv("COMMISSION_RATE_PHARMACY", "0.05")
	t.Setenv("ACCOUNT_CACHE_TTL", "30s")
	t.Setenv("API_PORT", "9000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rates, err := cfg.Rates()
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if cfg.Currency != "USD" || cfg.APIPort != 9000 || cfg.AccountCacheTTL != 30*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !rates[models.RolePharmacy].Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("pharmacy rate = %s", rates[models.RolePharmacy])
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing gateway secret", map[string]string{"GATEWAY_KEY_SECRET": ""}, "GATEWAY_KEY_SECRET"},
		{"missing gateway key", map[string]string{"GATEWAY_KEY_ID": ""}, "GATEWAY_KEY_ID"},
		{"missing jwt secret", map[string]string{"JWT_SECRET": " "}, "JWT_SECRET"},
		{"rate above one", map[string]string{"COMMISSION_RATE_DOCTOR": "1.5"}, "COMMISSION_RATE_DOCTOR"},
		{"negative rate", map[string]string{"COMMISSION_RATE_LABORATORY": "-0.1"}, "COMMISSION_RATE_LABORATORY"},
		{"rate not a number", map[string]string{"COMMISSION_RATE_DOCTOR": "ten"}, "COMMISSION_RATE_DOCTOR"},
		{"bad tiers", map[string]string{"SUBSCRIPTION_TIERS": "monthly:30"}, "SUBSCRIPTION_TIERS"},
		{"bad currency", map[string]string{"CURRENCY": "rupee"}, "CURRENCY"},
		{"missing account directory", map[string]string{"ACCOUNT_DIRECTORY_URL": ""}, "ACCOUNT_DIRECTORY_URL is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			err = cfg.Validate()
			if !errors.Is(err, apperr.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Fatalf("error %q does not name %s", err, c.want)
			}
		})
	}
}

func TestDevelopmentAllowsStaticDirectory(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCOUNT_DIRECTORY_URL", "")
	t.Setenv("DEVELOPMENT", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers(DefaultSubscriptionTiers)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tiers) != 3 || tiers[1].Key != "quarterly" || tiers[1].Days != 90 || !tiers[1].Price.Equal(decimal.NewFromInt(799)) {
		t.Fatalf("unexpected tiers: %+v", tiers)
	}

	for _, bad := range []string{"", "monthly:0:299", "monthly:30:-1", "monthly:30:299,monthly:60:500", ":30:299", "monthly:x:299"} {
		if _, err := ParseTiers(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
