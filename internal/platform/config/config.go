package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	RulesSourceFile = "file"
	RulesSourceDB   = "db"
)

type Config struct {
	Addr                     string          `yaml:"addr"`
	Environment              string          `yaml:"environment"`
	LogLevel                 string          `yaml:"logLevel"`
	SuperannuationPercentage decimal.Decimal `yaml:"superannuationPercentage"`
	MedicareLevyRules        string          `yaml:"medicareLevyRules"`
	BudgetRepairLevyRules    string          `yaml:"budgetRepairLevyRules"`
	IncomeTaxRules           string          `yaml:"incomeTaxRules"`
	RulesSource              string          `yaml:"rulesSource"`
	WatchRules               bool            `yaml:"watchRules"`
	RulesReloadDebounce      time.Duration   `yaml:"rulesReloadDebounce"`
	RulesRefreshInterval     time.Duration   `yaml:"rulesRefreshInterval"`
	DatabaseURL              string          `yaml:"databaseUrl"`
	RunMigrations            bool            `yaml:"runMigrations"`
	RunSeed                  bool            `yaml:"runSeed"`
	MigrationsDir            string          `yaml:"migrationsDir"`
	JWTSecret                string          `yaml:"jwtSecret"`
	RequireAuth              bool            `yaml:"requireAuth"`
	PayslipDir               string          `yaml:"payslipDir"`
	Currency                 string          `yaml:"currency"`
	DisplayLocale            string          `yaml:"displayLocale"`
	MaxBodyBytes             int64           `yaml:"maxBodyBytes"`
	RateLimitPerMinute       int             `yaml:"rateLimitPerMinute"`
	MetricsEnabled           bool            `yaml:"metricsEnabled"`
}

func Load() Config {
	return Config{
		Addr:                     getEnv("APP_ADDR", ":8080"),
		Environment:              getEnv("APP_ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		SuperannuationPercentage: getEnvDecimal("SUPERANNUATION_PERCENTAGE", decimal.RequireFromString("9.5")),
		MedicareLevyRules:        getEnv("MEDICARE_LEVY_RULES", "rules/medicare_levy.csv"),
		BudgetRepairLevyRules:    getEnv("BUDGET_REPAIR_LEVY_RULES", "rules/budget_repair_levy.csv"),
		IncomeTaxRules:           getEnv("INCOME_TAX_RULES", "rules/income_tax.csv"),
		RulesSource:              getEnv("RULES_SOURCE", RulesSourceFile),
		WatchRules:               getEnvBool("WATCH_RULES", false),
		RulesReloadDebounce:      getEnvDuration("RULES_RELOAD_DEBOUNCE", 500*time.Millisecond),
		RulesRefreshInterval:     getEnvDuration("RULES_REFRESH_INTERVAL", 0),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RunMigrations:            getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                  getEnvBool("RUN_SEED", true),
		MigrationsDir:            getEnv("MIGRATIONS_DIR", "migrations"),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		RequireAuth:              getEnvBool("REQUIRE_AUTH", false),
		PayslipDir:               getEnv("PAYSLIP_DIR", ""),
		Currency:                 getEnv("CURRENCY", "AUD"),
		DisplayLocale:            getEnv("DISPLAY_LOCALE", "en-AU"),
		MaxBodyBytes:             int64(getEnvInt("MAX_BODY_BYTES", 65536)),
		RateLimitPerMinute:       getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:           getEnvBool("METRICS_ENABLED", true),
	}
}

// LoadFile overlays values from a YAML file on top of the environment.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if c.SuperannuationPercentage.IsNegative() || c.SuperannuationPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("SUPERANNUATION_PERCENTAGE must be between 0 and 100")
	}
	switch c.RulesSource {
	case RulesSourceFile:
	case RulesSourceDB:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when RULES_SOURCE is db")
		}
	default:
		return fmt.Errorf("RULES_SOURCE must be %q or %q", RulesSourceFile, RulesSourceDB)
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set in production to protect rule reloads")
	}
	if c.RequireAuth && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required when REQUIRE_AUTH is set")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// UsesDatabase reports whether a database connection is needed.
func (c Config) UsesDatabase() bool {
	return c.RulesSource == RulesSourceDB
}
