package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/apperr"
	"github.com/carelink/carewallet/internal/models"
)

// DefaultSubscriptionTiers is the plan offered when none is configured.
const DefaultSubscriptionTiers = "monthly:30:299,quarterly:90:799,yearly:365:2999"

type Config struct {
	Development bool
	// API configuration
	APIPort        int
	RequestTimeout time.Duration
	JWTSecret      string
	InternalAPIKey string
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Payment gateway configuration
	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
	Currency         string

	// CommissionRates holds the raw per-role rates; see Rates.
	CommissionRates map[models.Role]string

	// Subscription plan seeded on first start
	SubscriptionPlanName string
	SubscriptionTiers    string

	// Background jobs
	ExpirySweepSchedule string
	InstanceID          string

	// Event bus configuration
	RabbitMQURL    string
	EventsExchange string

	// Notification configuration
	TelegramBotToken    string
	TelegramAdminChatID string

	// Account directory configuration
	AccountDirectoryURL string
	AccountCacheTTL     time.Duration
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 8080),
		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		InternalAPIKey:   getEnv("INTERNAL_API_KEY", ""),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "carewallet"),

		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", ""),
		GatewayKeyID:     getEnv("GATEWAY_KEY_ID", ""),
		GatewayKeySecret: getEnv("GATEWAY_KEY_SECRET", ""),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "INR")),

		CommissionRates: map[models.Role]string{
			models.RoleDoctor:     getEnv("COMMISSION_RATE_DOCTOR", "0.10"),
			models.RoleLaboratory: getEnv("COMMISSION_RATE_LABORATORY", "0.10"),
			models.RolePharmacy:   getEnv("COMMISSION_RATE_PHARMACY", "0.10"),
		},

		SubscriptionPlanName: getEnv("SUBSCRIPTION_PLAN_NAME", "Provider Subscription"),
		SubscriptionTiers:    getEnv("SUBSCRIPTION_TIERS", DefaultSubscriptionTiers),

		ExpirySweepSchedule: getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 5m"),
		InstanceID:          getEnv("INSTANCE_ID", defaultInstanceID()),

		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "carewallet.events"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID: getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),

		AccountDirectoryURL: getEnv("ACCOUNT_DIRECTORY_URL", ""),
		AccountCacheTTL:     getEnvAsDuration("ACCOUNT_CACHE_TTL", 5*time.Minute),
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"GATEWAY_KEY_ID", c.GatewayKeyID},
		{"GATEWAY_KEY_SECRET", c.GatewayKeySecret},
		{"JWT_SECRET", c.JWTSecret},
		{"POSTGRES_DB", c.PostgresDB},
		{"POSTGRES_HOST", c.PostgresHost},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.Configuration(fmt.Sprintf("%s is required", r.key))
		}
	}

	// Only development may run with every account treated as approved.
	if !c.Development && strings.TrimSpace(c.AccountDirectoryURL) == "" {
		return apperr.Configuration("ACCOUNT_DIRECTORY_URL is required")
	}

	if len(c.Currency) != 3 {
		return apperr.Configuration(fmt.Sprintf("CURRENCY must be a 3-letter code, got %q", c.Currency))
	}
	if _, err := c.Rates(); err != nil {
		return err
	}
	if _, err := ParseTiers(c.SubscriptionTiers); err != nil {
		return err
	}
	return nil
}

// Rates parses the configured commission rates. Each must lie in [0, 1].
func (c *Config) Rates() (map[models.Role]decimal.Decimal, error) {
	rates := make(map[models.Role]decimal.Decimal, len(c.CommissionRates))
	for role, raw := range c.CommissionRates {
		key := "COMMISSION_RATE_" + strings.ToUpper(string(role))
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.Configuration(fmt.Sprintf("%s is not a number: %q", key, raw))
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, apperr.Configuration(fmt.Sprintf("%s must be between 0 and 1, got %s", key, rate))
		}
		rates[role] = rate
	}
	return rates, nil
}

// ParseTiers reads "key:days:price" entries separated by commas.
func ParseTiers(s string) ([]models.DurationTier, error) {
	var tiers []models.DurationTier
	seen := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, apperr.Configuration(fmt.Sprintf("SUBSCRIPTION_TIERS entry %q must be key:days:price", item))
		}
		key := strings.TrimSpace(parts[0])
		if key == "" || seen[key] {
			return nil, apperr.Configuration(fmt.Sprintf("SUBSCRIPTION_TIERS entry %q has an empty or duplicate key", item))
		}
		days, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || days <= 0 {
			return nil, apperr.Configuration(fmt.Sprintf("SUBSCRIPTION_TIERS entry %q needs a positive day count", item))
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil || !price.IsPositive() {
			return nil, apperr.Configuration(fmt.Sprintf("SUBSCRIPTION_TIERS entry %q needs a positive price", item))
		}
		seen[key] = true
		tiers = append(tiers, models.DurationTier{Key: key, Days: days, Price: price.Round(2)})
	}
	if len(tiers) == 0 {
		return nil, apperr.Configuration("SUBSCRIPTION_TIERS must define at least one tier")
	}
	return tiers, nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "carewallet"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
