package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dareledger/database"
	"dareledger/domain/entities"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`
	// Pool limits; zero keeps the pgxpool defaults
	DatabaseMaxConns        int32         `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	DatabaseMaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"0"`

	// HTTP configuration
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminToken string `env:"ADMIN_TOKEN"`

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS"` // NATS server addresses (comma-separated), empty disables NATS

	// Custodian configuration
	CustodianMode           string        `env:"CUSTODIAN_MODE" envDefault:"nats"` // "nats" or "memory"
	CustodianSubjectPrefix  string        `env:"CUSTODIAN_SUBJECT_PREFIX" envDefault:"custodian"`
	CustodianTimeout        time.Duration `env:"CUSTODIAN_TIMEOUT" envDefault:"10s"`
	TreasuryAddress         string        `env:"TREASURY_ADDRESS"`
	NativeUnitsPerMinorUnit int64         `env:"NATIVE_UNITS_PER_MINOR_UNIT" envDefault:"1"`

	// Authorization
	SignatureWindow    time.Duration `env:"SIGNATURE_WINDOW" envDefault:"5m"`
	PublicKeyCacheSize int           `env:"PUBLIC_KEY_CACHE_SIZE" envDefault:"1024"`

	// Payout rules, in basis points
	BettorShareBps       int64         `env:"BETTOR_SHARE_BPS" envDefault:"4800"`
	CreatorFeeBps        int64         `env:"CREATOR_FEE_BPS" envDefault:"200"`
	CompleterShareBps    int64         `env:"COMPLETER_SHARE_BPS" envDefault:"5000"`
	CashOutPenaltyBps    int64         `env:"CASHOUT_PENALTY_BPS" envDefault:"1000"`
	CashOutPenaltyPolicy string        `env:"CASHOUT_PENALTY_POLICY" envDefault:"burn"` // burn, winners or treasury
	CashOutCutoff        time.Duration `env:"CASHOUT_CUTOFF" envDefault:"10m"`

	// Bet placement
	RequireDepositVerification bool `env:"REQUIRE_DEPOSIT_VERIFICATION" envDefault:"true"`

	// Scheduled jobs
	ExpirySweepInterval   time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1m"`
	ReconcileInterval     time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15m"`
	IntentResolveInterval time.Duration `env:"INTENT_RESOLVE_INTERVAL" envDefault:"5m"`
	IntentResolveMinAge   time.Duration `env:"INTENT_RESOLVE_MIN_AGE" envDefault:"2m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"dare-ledger"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp or none
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"60000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

// IntentAgeMargin is the slack an outstanding intent must age past the
// custodian timeout before a missing transfer is taken as never sent
const IntentAgeMargin = 30 * time.Second

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PayoutRules returns the configured settlement split
func (c *Config) PayoutRules() entities.PayoutRules {
	return entities.PayoutRules{
		BettorShareBps:    c.BettorShareBps,
		CreatorFeeBps:     c.CreatorFeeBps,
		CompleterShareBps: c.CompleterShareBps,
		CashOutPenaltyBps: c.CashOutPenaltyBps,
		PenaltyPolicy:     entities.PenaltyPolicy(c.CashOutPenaltyPolicy),
	}
}

// NATSEnabled reports whether a NATS connection should be established
func (c *Config) NATSEnabled() bool {
	return strings.TrimSpace(c.NATSServers) != ""
}

// Validate checks cross-field constraints that struct tags cannot express
func (c *Config) Validate() error {
	for name, bps := range map[string]int64{
		"BETTOR_SHARE_BPS":    c.BettorShareBps,
		"CREATOR_FEE_BPS":     c.CreatorFeeBps,
		"COMPLETER_SHARE_BPS": c.CompleterShareBps,
		"CASHOUT_PENALTY_BPS": c.CashOutPenaltyBps,
	} {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("%s must be between 0 and 10000, got %d", name, bps)
		}
	}
	if sum := c.BettorShareBps + c.CreatorFeeBps + c.CompleterShareBps; sum != 10000 {
		return fmt.Errorf("payout shares must sum to 10000 basis points, got %d", sum)
	}

	switch c.CashOutPenaltyPolicy {
	case "burn", "winners", "treasury":
	default:
		return fmt.Errorf("unknown CASHOUT_PENALTY_POLICY: %s", c.CashOutPenaltyPolicy)
	}

	switch c.CustodianMode {
	case "nats", "memory":
	default:
		return fmt.Errorf("unknown CUSTODIAN_MODE: %s", c.CustodianMode)
	}
	if c.CustodianMode == "memory" && c.IsProduction() {
		return fmt.Errorf("CUSTODIAN_MODE=memory is not allowed in production")
	}
	if c.CustodianMode == "nats" && !c.NATSEnabled() {
		return fmt.Errorf("NATS_SERVERS is required when CUSTODIAN_MODE=nats")
	}

	if c.NativeUnitsPerMinorUnit <= 0 {
		return fmt.Errorf("NATIVE_UNITS_PER_MINOR_UNIT must be positive")
	}
	if c.DatabaseMaxConns < 0 {
		return fmt.Errorf("DATABASE_MAX_CONNS cannot be negative")
	}
	if c.CustodianTimeout <= 0 {
		return fmt.Errorf("CUSTODIAN_TIMEOUT must be positive")
	}
	if c.IntentResolveMinAge < c.CustodianTimeout+IntentAgeMargin {
		return fmt.Errorf("INTENT_RESOLVE_MIN_AGE (%s) must exceed CUSTODIAN_TIMEOUT (%s) by at least %s",
			c.IntentResolveMinAge, c.CustodianTimeout, IntentAgeMargin)
	}
	if c.SignatureWindow <= 0 {
		return fmt.Errorf("SIGNATURE_WINDOW must be positive")
	}
	if c.CashOutCutoff < 0 {
		return fmt.Errorf("CASHOUT_CUTOFF cannot be negative")
	}
	if !c.RequireDepositVerification && c.IsProduction() {
		return fmt.Errorf("REQUIRE_DEPOSIT_VERIFICATION cannot be disabled in production")
	}
	return nil
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A .env file is optional; real environment variables take precedence
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.AdminToken == "" {
			return nil, fmt.Errorf("ADMIN_TOKEN is required")
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:                "test",
		HTTPAddr:                   ":0",
		AdminToken:                 "test-admin-token",
		CustodianMode:              "memory",
		CustodianSubjectPrefix:     "custodian",
		CustodianTimeout:           2 * time.Second,
		TreasuryAddress:            "TreasuryTestAddress",
		NativeUnitsPerMinorUnit:    1,
		SignatureWindow:            5 * time.Minute,
		PublicKeyCacheSize:         128,
		BettorShareBps:             4800,
		CreatorFeeBps:              200,
		CompleterShareBps:          5000,
		CashOutPenaltyBps:          1000,
		CashOutPenaltyPolicy:       "burn",
		CashOutCutoff:              10 * time.Minute,
		RequireDepositVerification: true,
		ExpirySweepInterval:        time.Minute,
		ReconcileInterval:          15 * time.Minute,
		IntentResolveInterval:      5 * time.Minute,
		IntentResolveMinAge:        2 * time.Minute,
		LogLevel:                   "debug",
		LogFormat:                  "text",
		OTelExporterType:           "none",
	}
}
