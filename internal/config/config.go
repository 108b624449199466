package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/enum"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/pricing"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "dev-secret-change-in-production"

const minPINDigits = 4

// Config holds all application configuration
type Config struct {
	Port     string
	GoEnv    string
	LogLevel string

	// Empty selects the in-memory ledger.
	DatabaseURL string

	// Empty selects in-memory sessions and login throttle.
	RedisURL string

	JWTSecret        string
	AdminPIN         string
	AdminPINHash     string
	SessionTTL       time.Duration
	LoginMaxCooldown time.Duration

	Prices      map[string]decimal.Decimal
	Fees        pricing.FeeSchedule
	PricingFile string

	UPIVPA       string
	UPIPayeeName string

	CORSOrigins []string

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	TelegramToken  string
	TelegramChatID int64
}

// Load reads .env.<GO_ENV> and .env when present, then the process
// environment. Variables already set in the environment win over both files.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	// Missing files are fine; in production variables are set directly.
	_ = godotenv.Load(fmt.Sprintf(".env.%s", env))
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		Port:             getEnv("PORT", "8081"),
		GoEnv:            getEnv("GO_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AdminPIN:         getEnv("ADMIN_PIN", ""),
		AdminPINHash:     getEnv("ADMIN_PIN_HASH", ""),
		SessionTTL:       p.duration("SESSION_TTL", auth.DefaultSessionTTL),
		LoginMaxCooldown: p.duration("LOGIN_MAX_COOLDOWN", auth.DefaultCooldownCap),
		Prices: map[string]decimal.Decimal{
			enum.OrderTypeDaily:         p.amount("PRICE_DAILY", 100),
			enum.OrderTypeBreakfast:     p.amount("PRICE_BREAKFAST", 50),
			enum.OrderTypeMonthlyVeg:    p.amount("PRICE_MONTHLY_VEG", 2800),
			enum.OrderTypeMonthlyNonVeg: p.amount("PRICE_MONTHLY_NONVEG", 3500),
		},
		Fees: pricing.FeeSchedule{
			Base:  p.amount("FEE_BASE", 0),
			Tiers: p.tiers("FEE_TIERS", "2:0,5:20"),
			PerKm: p.amount("FEE_PER_KM", 5),
		},
		PricingFile:    getEnv("PRICING_FILE", ""),
		UPIVPA:         getEnv("UPI_VPA", ""),
		UPIPayeeName:   getEnv("UPI_PAYEE_NAME", "Sharma Tiffin"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "")),
		TrustProxy:     p.flag("TRUST_PROXY", false),
		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID: p.integer("TELEGRAM_CHAT_ID", 0),
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = defaultJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set to a non-default value in production"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch {
	case c.AdminPINHash != "":
	case c.AdminPIN == "":
		errs = append(errs, errors.New("ADMIN_PIN or ADMIN_PIN_HASH is required"))
	case !isDigits(c.AdminPIN) || len(c.AdminPIN) < minPINDigits:
		errs = append(errs, fmt.Errorf("ADMIN_PIN must be at least %d digits", minPINDigits))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.LoginMaxCooldown <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_COOLDOWN must be positive"))
	}

	if _, err := pricing.NewTable(c.Prices); err != nil {
		errs = append(errs, fmt.Errorf("prices: %w", err))
	}
	fees := c.Fees
	if err := fees.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("delivery fees: %w", err))
	}

	if c.UPIVPA == "" {
		errs = append(errs, errors.New("UPI_VPA is required"))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set"))
	}

	return errors.Join(errs...)
}

// PricingSnapshot builds the pricing snapshot described by the environment.
func (c *Config) PricingSnapshot(now time.Time) (*pricing.Snapshot, error) {
	table, err := pricing.NewTable(c.Prices)
	if err != nil {
		return nil, err
	}
	fees := c.Fees
	fees.Tiers = append([]pricing.FeeTier(nil), c.Fees.Tiers...)
	return pricing.NewSnapshot(table, &fees, now)
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and collects every parse error so a bad
// deployment reports all of them at once.
type parser struct {
	errs []error
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) amount(key string, def int64) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return decimal.NewFromInt(def)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, err)
		return decimal.NewFromInt(def)
	}
	return d
}

func (p *parser) tiers(key, def string) []pricing.FeeTier {
	tiers, err := pricing.ParseTiers(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
		return nil
	}
	return tiers
}

func (p *parser) flag(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) integer(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
