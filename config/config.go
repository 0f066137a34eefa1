package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerPort  string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	SupabaseURL       string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey   string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	StorageBucket     string `envconfig:"STORAGE_BUCKET" default:"products"`
	CloudinaryURL     string `envconfig:"CLOUDINARY_URL"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	LegacyAPIKey  string `envconfig:"API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-3-flash-preview"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`

	AdminKeyHash string   `envconfig:"ADMIN_KEY_HASH"`
	CORSOrigins  []string `envconfig:"CORS_ORIGINS"`

	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS"`
	OrderEventsTopic string   `envconfig:"ORDER_EVENTS_TOPIC" default:"orders.placed"`

	CatalogueRefreshSpec string        `envconfig:"CATALOGUE_REFRESH_SPEC" default:"@every 5m"`
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	CheckoutStrict       bool          `envconfig:"CHECKOUT_STRICT" default:"false"`
	CheckoutPacing       bool          `envconfig:"CHECKOUT_PACING" default:"true"`
	MuseRatePerMinute    int           `envconfig:"MUSE_RATE_PER_MINUTE" default:"6"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

var AppConfig *Config

func Load() error {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	AppConfig = &cfg
	return nil
}

// SupabaseEnabled reports whether hosted backend credentials are present.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// GeminiKey returns the suggestion service key, accepting the legacy API_KEY name.
func (c *Config) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.LegacyAPIKey
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
