package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/lsoares/investa/internal/logger"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultFeeRate         = "0.05"
	defaultCommissionRate  = "0.10"
	defaultMinWithdrawal   = "50"
	defaultAccrualInterval = 5 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Fee charged on every withdrawal, share of the requested amount
	FeeRate string

	// Referral commission paid on approved deposits, share of the amount
	CommissionRate string

	// Smallest withdrawal a user may request
	MinWithdrawal string

	// How often the accrual scheduler scans for due positions
	AccrualInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		FeeRate:         defaultFeeRate,
		CommissionRate:  defaultCommissionRate,
		MinWithdrawal:   defaultMinWithdrawal,
		AccrualInterval: defaultAccrualInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"DATABASE_URI":             setString(&c.DatabaseDSN),
		"SECRET_KEY":               setString(&c.SecretKey),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
		"WITHDRAWAL_FEE_RATE":      setString(&c.FeeRate),
		"REFERRAL_COMMISSION_RATE": setString(&c.CommissionRate),
		"MIN_WITHDRAWAL":           setString(&c.MinWithdrawal),
		"ACCRUAL_INTERVAL":         setDuration(&c.AccrualInterval),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("investa", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.FeeRate, "fee-rate", c.FeeRate, "Withdrawal fee rate")
	fs.StringVar(&c.CommissionRate, "commission-rate", c.CommissionRate, "Referral commission rate")
	fs.StringVar(&c.MinWithdrawal, "min-withdrawal", c.MinWithdrawal, "Minimum withdrawal amount")
	fs.DurationVar(&c.AccrualInterval, "accrual-interval", c.AccrualInterval, "Accrual scheduler tick interval")

	return fs.Parse(args)
}
