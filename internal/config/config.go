package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiration time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`

	SchedulerInterval   time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"60s"`
	StandupReminderHour int           `envconfig:"STANDUP_REMINDER_HOUR" default:"10"`

	AIAPIKey       string        `envconfig:"AI_API_KEY" default:""`
	AIModel        string        `envconfig:"AI_MODEL" default:"gemini-2.0-flash"`
	AIMaxRows      int           `envconfig:"AI_MAX_ROWS" default:"200"`
	AIQueryTimeout time.Duration `envconfig:"AI_QUERY_TIMEOUT" default:"5s"`
	AIQueryRole    string        `envconfig:"AI_QUERY_ROLE" default:""`

	BootstrapAdminEmail string `envconfig:"BOOTSTRAP_ADMIN_EMAIL" default:"admin@syncup.local"`
	BootstrapCompany    string `envconfig:"BOOTSTRAP_COMPANY" default:"SyncUp"`
}

// Load reads configuration from environment variables into a Config struct.
// Variables from the file named by SYNCUP_ENV_FILE (default ".env") are
// applied first; values already present in the environment take precedence.
func Load() (*Config, error) {
	envFile := os.Getenv("SYNCUP_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges envconfig cannot express.
func (c *Config) Validate() error {
	if c.StandupReminderHour < 0 || c.StandupReminderHour > 23 {
		return fmt.Errorf("STANDUP_REMINDER_HOUR must be between 0 and 23, got %d", c.StandupReminderHour)
	}
	if c.SchedulerInterval <= 0 {
		return errors.New("SCHEDULER_INTERVAL must be positive")
	}
	if c.AIMaxRows < 1 {
		return errors.New("AI_MAX_ROWS must be at least 1")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}
