// Package config loads service configuration from environment variables
// and an optional YAML config file. Optional integrations (Postgres,
// Redis, Stripe, Resend) activate when their settings are present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTPAddress is the listen address of the API server.
	HTTPAddress string

	// DatabaseURI is the Postgres connection string. When empty the server
	// falls back to the in-memory store.
	DatabaseURI string

	// RedisAddress enables the usage-quota cache when set.
	RedisAddress string

	// TokenSecret signs session tokens, TokenTTL bounds their lifetime.
	TokenSecret string
	TokenTTL    time.Duration

	// MasterSecret derives the key that seals provider keys at rest.
	MasterSecret string

	// Stripe settings. The deterministic stub provider is used until a
	// secret key is configured.
	StripeSecretKey       string
	StripeWebhookSecret   string
	StripePricePro        string
	StripePriceEnterprise string

	// Resend settings for member-invite mail. Noop mailer when unset.
	ResendAPIKey string
	ResendFrom   string
}

// Load reads configuration from files and environment variables
func Load() (Config, error) {
	v := viper.New()

	setDefaults(v)

	// Configure environment variables before reading the config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":           "PROMPTDECK_HTTP_ADDRESS",
		"DatabaseURI":           "PROMPTDECK_DATABASE_URI",
		"RedisAddress":          "PROMPTDECK_REDIS_ADDRESS",
		"TokenSecret":           "PROMPTDECK_TOKEN_SECRET",
		"TokenTTL":              "PROMPTDECK_TOKEN_TTL",
		"MasterSecret":          "PROMPTDECK_MASTER_SECRET",
		"StripeSecretKey":       "PROMPTDECK_STRIPE_SECRET_KEY",
		"StripeWebhookSecret":   "PROMPTDECK_STRIPE_WEBHOOK_SECRET",
		"StripePricePro":        "PROMPTDECK_STRIPE_PRICE_PRO",
		"StripePriceEnterprise": "PROMPTDECK_STRIPE_PRICE_ENTERPRISE",
		"ResendAPIKey":          "PROMPTDECK_RESEND_API_KEY",
		"ResendFrom":            "PROMPTDECK_RESEND_FROM",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("promptdeck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.promptdeck")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("TokenTTL", "24h")
	v.SetDefault("ResendFrom", "PromptDeck <notifications@promptdeck.dev>")
}

// Validate checks the settings the API server cannot run without.
func (c Config) Validate() error {
	var missingVars []string

	if c.TokenSecret == "" {
		missingVars = append(missingVars, "PROMPTDECK_TOKEN_SECRET")
	}

	if c.MasterSecret == "" {
		missingVars = append(missingVars, "PROMPTDECK_MASTER_SECRET")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
