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

	"github.com/nkiryanov/resettoken/internal/logger"
	"github.com/nkiryanov/resettoken/internal/service/resettoken"
)

const (
	defaultDriver        = DriverPgx
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultExpireMinutes = 60
	defaultInterval      = 10 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment: dev or prod
	Environment string

	// Database driver: pgx, or postgres, mysql, sqlite served by gorm
	Driver string

	// Database to connect to
	DatabaseDSN string

	// Key reset tokens are derived with
	SecretKey string

	// Reset token table and lifetime, have to match the values of the service issuing tokens
	Table         string
	ExpireMinutes int

	// How often to purge expired tokens
	Interval time.Duration

	// Purge once and exit
	Once bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		Environment:   defaultEnvironment,
		Driver:        defaultDriver,
		Table:         resettoken.DefaultTable,
		ExpireMinutes: defaultExpireMinutes,
		Interval:      defaultInterval,
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
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
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
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"DB_DRIVER":            setString(&c.Driver),
		"SECRET_KEY":           setString(&c.SecretKey),
		"TOKEN_TABLE":          setString(&c.Table),
		"TOKEN_EXPIRE_MINUTES": setInt(&c.ExpireMinutes),
		"PURGE_INTERVAL":       setDuration(&c.Interval),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s value. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("tokenpurge", pflag.ContinueOnError)

	fs.StringVarP(&c.Driver, "driver", "D", c.Driver, "Database driver (pgx, postgres, mysql, sqlite)")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.Table, "table", "t", c.Table, "Reset token table")
	fs.IntVarP(&c.ExpireMinutes, "expire", "x", c.ExpireMinutes, "Reset token lifetime in minutes")
	fs.DurationVarP(&c.Interval, "interval", "i", c.Interval, "Purge interval")
	fs.BoolVar(&c.Once, "once", c.Once, "Purge expired tokens once and exit")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
