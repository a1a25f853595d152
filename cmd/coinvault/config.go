package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ndmitriev/coinvault/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultCronSchedule = "0 0 * * *" // daily at midnight UTC
	defaultRunTimeout   = 10 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the coinvault service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Shared secret the external cron trigger must present as bearer token
	CronSecret string

	// Secret key to sign operator session tokens
	SecretKey string

	// Bcrypt hash of the operator password for the admin API
	AdminPasswordHash string

	// Cron spec for the built-in accrual scheduler; empty disables it
	CronSchedule string

	// Deadline of one accrual run
	RunTimeout time.Duration

	// Accounts processed concurrently within an accrual run (0 = engine default)
	CountWorkers int

	// Account ids fetched per page during the accrual scan (0 = engine default)
	BatchSize int

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		ListenAddr:   defaultListenAddr,
		Environment:  defaultEnvironment,
		CronSchedule: defaultCronSchedule,
		RunTimeout:   defaultRunTimeout,
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
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = parsed
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = parsed
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":         setString(&c.ListenAddr),
		"DATABASE_URI":        setString(&c.DatabaseDSN),
		"CRON_SECRET":         setString(&c.CronSecret),
		"SECRET_KEY":          setString(&c.SecretKey),
		"ADMIN_PASSWORD_HASH": setString(&c.AdminPasswordHash),
		"CRON_SCHEDULE":       setString(&c.CronSchedule),
		"RUN_TIMEOUT":         setDuration(&c.RunTimeout),
		"ACCRUAL_WORKERS":     setInt(&c.CountWorkers),
		"ACCRUAL_BATCH_SIZE":  setInt(&c.BatchSize),
		"LOG_LEVEL":           setString(&c.LogLevel),
		"ENVIRONMENT":         setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("coinvault", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.CronSecret, "cron-secret", "c", c.CronSecret, "Shared secret for the cron trigger endpoint")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key for session token signing")
	fs.StringVar(&c.AdminPasswordHash, "admin-password-hash", c.AdminPasswordHash, "Bcrypt hash of the operator password")
	fs.StringVar(&c.CronSchedule, "cron-schedule", c.CronSchedule, "Cron spec of the built-in accrual scheduler (empty to disable)")
	fs.DurationVar(&c.RunTimeout, "run-timeout", c.RunTimeout, "Deadline for one accrual run")
	fs.IntVar(&c.CountWorkers, "workers", c.CountWorkers, "Accounts processed concurrently per accrual run")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "Account ids fetched per page during the accrual scan")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
