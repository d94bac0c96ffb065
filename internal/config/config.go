/**
 * @description
 * This package handles configuration management for the watcher-service. It
 * uses the Viper library to read configuration from environment variables
 * (with an optional .env file), providing a centralized and straightforward
 * way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 * - github.com/shopspring/decimal: Exact decimal parsing for plan prices and
 *   the amount tolerance.
 */

package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/paywatch/watcher-service/internal/domain"
)

// SymbolFilterSentinel is the USDT_CONTRACT value meaning "no contract id is
// configured; filter transfers by token symbol instead". Kept from the
// original deployments so existing operator configs keep working.
const SymbolFilterSentinel = "Tether_USDT_TRON"

// Config holds all the configuration variables for the watcher-service.
// These values are loaded from environment variables.
type Config struct {
	OrderStoreURL   string `mapstructure:"ORDER_STORE_URL"`
	OrderStoreToken string `mapstructure:"ORDER_STORE_TOKEN"`
	WalletAddress   string `mapstructure:"WALLET_ADDRESS"`
	USDTContract    string `mapstructure:"USDT_CONTRACT"`

	MonthlyAmount   string `mapstructure:"MONTHLY_AMOUNT"`
	QuarterlyAmount string `mapstructure:"QUARTERLY_AMOUNT"`
	AmountEps       string `mapstructure:"AMOUNT_EPS"`

	LedgerPath         string `mapstructure:"LEDGER_PATH"`
	TronscanPrimaryURL string `mapstructure:"TRONSCAN_PRIMARY_URL"`
	TronscanFallback   string `mapstructure:"TRONSCAN_FALLBACK_URL"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	WatchSchedule      string `mapstructure:"WATCH_SCHEDULE"`

	// Parsed amounts, populated by LoadConfig after unmarshalling.
	Monthly   decimal.Decimal `mapstructure:"-"`
	Quarterly decimal.Decimal `mapstructure:"-"`
	Epsilon   decimal.Decimal `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("USDT_CONTRACT", SymbolFilterSentinel)
	viper.SetDefault("MONTHLY_AMOUNT", "15.0")
	viper.SetDefault("QUARTERLY_AMOUNT", "40.0")
	viper.SetDefault("AMOUNT_EPS", "0.05")
	viper.SetDefault("LEDGER_PATH", ".state/processed_txids.json")
	viper.SetDefault("TRONSCAN_PRIMARY_URL", "https://apilist.tronscan.org")
	viper.SetDefault("TRONSCAN_FALLBACK_URL", "https://apilist.tronscanapi.com")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("ORDER_STORE_URL")
	_ = viper.BindEnv("ORDER_STORE_TOKEN")
	_ = viper.BindEnv("WALLET_ADDRESS")
	_ = viper.BindEnv("USDT_CONTRACT")
	_ = viper.BindEnv("MONTHLY_AMOUNT")
	_ = viper.BindEnv("QUARTERLY_AMOUNT")
	_ = viper.BindEnv("AMOUNT_EPS")
	_ = viper.BindEnv("LEDGER_PATH")
	_ = viper.BindEnv("TRONSCAN_PRIMARY_URL")
	_ = viper.BindEnv("TRONSCAN_FALLBACK_URL")
	_ = viper.BindEnv("HTTP_TIMEOUT_SECONDS")
	_ = viper.BindEnv("WATCH_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	// Unmarshal the configuration into the Config struct.
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.OrderStoreURL = strings.TrimSpace(config.OrderStoreURL)
	config.OrderStoreToken = strings.TrimSpace(config.OrderStoreToken)
	config.WalletAddress = strings.TrimSpace(config.WalletAddress)
	config.USDTContract = strings.TrimSpace(config.USDTContract)
	if config.USDTContract == "" {
		config.USDTContract = SymbolFilterSentinel
	}

	config.Monthly = parseAmount("MONTHLY_AMOUNT", config.MonthlyAmount, "15.0")
	config.Quarterly = parseAmount("QUARTERLY_AMOUNT", config.QuarterlyAmount, "40.0")
	config.Epsilon = parseAmount("AMOUNT_EPS", config.AmountEps, "0.05")

	if config.HTTPTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive http timeout; using default\" value=%d", config.HTTPTimeoutSeconds)
		config.HTTPTimeoutSeconds = 30
	}

	return
}

// parseAmount parses a decimal env value, falling back to the default with a
// warn log when the configured value is unparsable.
func parseAmount(name, value, fallback string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		log.Printf("level=warn component=config msg=\"invalid %s; using default\" value=%q default=%s err=%v", name, value, fallback, err)
		amount = decimal.RequireFromString(fallback)
	}
	return amount
}

// Validate checks that every setting required before the first network call
// is present. A failure here is fatal and aborts the run pre-network.
func (c Config) Validate() error {
	var missing []string
	if c.OrderStoreURL == "" {
		missing = append(missing, "ORDER_STORE_URL")
	}
	if c.OrderStoreToken == "" {
		missing = append(missing, "ORDER_STORE_TOKEN")
	}
	if c.WalletAddress == "" {
		missing = append(missing, "WALLET_ADDRESS")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

// PlanTable builds the static plan/price table from the configured amounts.
func (c Config) PlanTable() domain.PlanTable {
	return domain.PlanTable{
		Plans: []domain.Plan{
			{Name: "Monthly", Price: c.Monthly, DurationDays: 30},
			{Name: "Quarterly", Price: c.Quarterly, DurationDays: 90},
		},
		Epsilon: c.Epsilon,
	}
}

// HTTPTimeout returns the shared client timeout for outbound calls.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
