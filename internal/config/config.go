// Package config loads service settings from the environment and an optional YAML file.
// Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseDSN string
	// RunMigrations applies the embedded schema on serve.
	RunMigrations bool
	RabbitMQURL   string

	StripeSecretKey     string
	StripeWebhookSecret string
	// StripeAPIBase overrides the Stripe API endpoint, e.g. for stripe-mock.
	StripeAPIBase string

	JWTSecret        string
	CORSAllowOrigins []string
	RequestTimeout   time.Duration
	GatewayTimeout   time.Duration
	LogRequests      bool
}

const (
	keyPort                = "port"
	keyDatabaseDSN         = "shop_db_dsn"
	keyRunMigrations       = "run_migrations"
	keyRabbitMQURL         = "rabbitmq_url"
	keyStripeSecretKey     = "stripe_secret_key"
	keyStripeWebhookSecret = "stripe_webhook_secret"
	keyStripeAPIBase       = "stripe_api_base"
	keyJWTSecret           = "jwt_secret"
	keyCORSAllowOrigins    = "cors_allow_origins"
	keyRequestTimeout      = "request_timeout"
	keyGatewayTimeout      = "gateway_timeout"
	keyLogRequests         = "log_requests"

	defaultRequestTimeout = 10 * time.Second
	defaultGatewayTimeout = 15 * time.Second
)

var ErrMissingDSN = errors.New("SHOP_DB_DSN is required")

// Load reads configuration. path may be empty, in which case only defaults and the
// environment are used.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault(keyPort, "8080")
	v.SetDefault(keyRunMigrations, true)
	v.SetDefault(keyCORSAllowOrigins, "*")
	v.SetDefault(keyRequestTimeout, defaultRequestTimeout.String())
	v.SetDefault(keyGatewayTimeout, defaultGatewayTimeout.String())
	v.SetDefault(keyLogRequests, true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:                strings.TrimSpace(v.GetString(keyPort)),
		DatabaseDSN:         strings.TrimSpace(v.GetString(keyDatabaseDSN)),
		RunMigrations:       v.GetBool(keyRunMigrations),
		RabbitMQURL:         strings.TrimSpace(v.GetString(keyRabbitMQURL)),
		StripeSecretKey:     strings.TrimSpace(v.GetString(keyStripeSecretKey)),
		StripeWebhookSecret: strings.TrimSpace(v.GetString(keyStripeWebhookSecret)),
		StripeAPIBase:       strings.TrimSpace(v.GetString(keyStripeAPIBase)),
		JWTSecret:           v.GetString(keyJWTSecret),
		CORSAllowOrigins:    origins(v.Get(keyCORSAllowOrigins)),
		RequestTimeout:      duration(v.GetString(keyRequestTimeout), defaultRequestTimeout),
		GatewayTimeout:      duration(v.GetString(keyGatewayTimeout), defaultGatewayTimeout),
		LogRequests:         v.GetBool(keyLogRequests),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseDSN == "" {
		return ErrMissingDSN
	}
	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}

// origins accepts a comma separated string (env) or a YAML list.
func origins(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
	case []string:
		parts = v
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func duration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
