// config.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes
const (
	AuthModeJWT        = "jwt"
	AuthModeAuthorizer = "authorizer"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port          string
	PublicBaseURL string

	// Database configuration
	DBType               string // postgres, mysql, sqlite, sqlite3, sqlserver
	DBHost               string
	DBPort               string
	DBAppDatabase        string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int

	// Identity provider configuration
	AuthMode        string
	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string
	AuthzURL        string
	AuthzClientID   string

	// Stripe configuration
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string

	// Redis profile cache, disabled when RedisURL is empty
	RedisURL      string
	RedisPassword string
	CacheTTL      time.Duration

	// Rate limiting for public lookup routes
	RateLimitPerSecond float64
	RateLimitBurst     int

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are
	// believed. Empty means clients are keyed by their peer address.
	TrustedProxies []string

	// MediaProbe enables HEAD requests to classify extension-less media URLs
	MediaProbe bool

	// Logging
	LogLevel string
	LogDev   bool
	LogFile  string
}

// Load loads configuration from environment variables.
// If ENV_FILE names a file, or a .env file exists in the working directory,
// it is loaded first without overriding variables already set.
func Load() (*Config, error) {
	if err := loadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", ""),
		DBType:               getEnv("DB_TYPE", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBAppDatabase:        getEnv("DB_APP_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 10),
		AuthMode:             strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
		AuthJWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:        getEnv("AUTH_JWT_ISSUER", ""),
		AuthJWTAudience:      getEnv("AUTH_JWT_AUDIENCE", ""),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceID:        getEnv("STRIPE_PRICE_ID", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		CacheTTL:             time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		RateLimitPerSecond:   getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", 10),
		TrustedProxies:       getEnvAsList("TRUSTED_PROXIES"),
		MediaProbe:           getEnvAsBool("MEDIA_PROBE", false),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		LogDev:               getEnvAsBool("LOG_DEV", false),
		LogFile:              getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields for the selected modes
func (cfg *Config) Validate() error {
	if cfg.DBAppDatabase == "" {
		return fmt.Errorf("DB_APP_DATABASE is required")
	}
	if !isFileDB(cfg.DBType) && cfg.DBAppUser == "" {
		return fmt.Errorf("DB_APP_USER is required")
	}

	switch cfg.AuthMode {
	case AuthModeJWT:
		if cfg.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE=%s", AuthModeJWT)
		}
	case AuthModeAuthorizer:
		if cfg.AuthzURL == "" {
			return fmt.Errorf("AUTHZ_URL is required when AUTH_MODE=%s", AuthModeAuthorizer)
		}
		if cfg.AuthzClientID == "" {
			return fmt.Errorf("AUTHZ_CLIENT_ID is required when AUTH_MODE=%s", AuthModeAuthorizer)
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE: %s", cfg.AuthMode)
	}

	// Stripe keys are optional at boot; checkout and webhook report
	// configuration errors per request.
	return nil
}

func isFileDB(dbType string) bool {
	return dbType == "sqlite" || dbType == "sqlite3"
}

func loadEnvFile(filename string) error {
	if filename != "" {
		if err := godotenv.Load(filename); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", filename, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if valueStr == "1" {
		return true
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
