// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/go-petr/pet-ledger/pkg/accnumpkg"
)

// Config stores all configuration of the application.
//
// The values are read by viper fron a config file or environement variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environement        string        `mapstructure:"GO_ENV"`
	LedgerMaxRetries    int           `mapstructure:"LEDGER_MAX_RETRIES"`
	LedgerLockTimeout   time.Duration `mapstructure:"LEDGER_LOCK_TIMEOUT"`
	AccountCountryCode  string        `mapstructure:"ACCOUNT_COUNTRY_CODE"`
}

// ErrInvalidCountryCode indicates an ACCOUNT_COUNTRY_CODE that is not two upper-case letters.
var ErrInvalidCountryCode = errors.New("account country code must be two upper-case letters")

// Validate checks values that would otherwise only fail at request time.
func (c Config) Validate() error {
	if !accnumpkg.ValidCountryCode(c.AccountCountryCode) {
		return fmt.Errorf("%w: %q", ErrInvalidCountryCode, c.AccountCountryCode)
	}

	return nil
}

// DriverMemory selects the in-memory storage instead of a database.
const DriverMemory = "memory"

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("LEDGER_LOCK_TIMEOUT", 2*time.Second)
	v.SetDefault("ACCOUNT_COUNTRY_CODE", "LT")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, c.Validate()
}
