package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/todolist/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultDatabaseDSN  = "instance/todolist.sqlite"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultCORSOrigin   = "http://localhost:3000"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the todolist service will be run
	ListenAddr string

	// Database to connect to
	// postgres://... for PostgreSQL, sqlite file path otherwise
	DatabaseDSN string

	// Secret key to sign access tokens
	SecretKey string

	// Environment: dev or prod
	Environment string

	// Browser origin allowed to call the API
	CORSOrigin string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		DatabaseDSN: defaultDatabaseDSN,
		Environment: defaultEnvironment,
		CORSOrigin:  defaultCORSOrigin,
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
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":  setString(&c.ListenAddr),
		"DATABASE_URI": setString(&c.DatabaseDSN),
		"SECRET_KEY":   setString(&c.SecretKey),
		"LOG_LEVEL":    setString(&c.LogLevel),
		"ENVIRONMENT":  setString(&c.Environment),
		"CORS_ORIGIN":  setString(&c.CORSOrigin),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("todolist", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database: postgres:// connection string or sqlite file path")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.CORSOrigin, "cors-origin", "o", c.CORSOrigin, "Browser origin allowed to call the API")

	return fs.Parse(args)
}

// Load config: defaults, than '.env' file, than environment, than flags
func LoadConfig(getenv func(string) string, getwd func() (string, error), args []string) (*Config, error) {
	c := NewConfig()

	err := c.LoadDotEnv(getwd)
	if err != nil {
		return nil, err
	}

	c.LoadEnv(getenv)

	err = c.ParseFlags(args)
	if err != nil {
		return nil, err
	}

	if c.SecretKey == "" {
		return nil, errors.New("secret key is required, set SECRET_KEY or --secret-key")
	}

	return c, nil
}
