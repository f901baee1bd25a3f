// Package config loads the mail engine's settings from the environment and
// the optional SMTP service seed file.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jmptrader/WebVella-ERP/internal/httpapi"
	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/pkg/db"
	"github.com/jmptrader/WebVella-ERP/pkg/logger"
	"github.com/jmptrader/WebVella-ERP/pkg/redis"
)

var ErrLoad = errors.New("config: failed to load environment")

// Config is the complete process configuration.
type Config struct {
	Log    logger.Config
	Sentry logger.SentryConfig
	DB     db.Config
	Redis  redis.Config
	HTTP   httpapi.ServerConfig
	SMTP   mail.TransportConfig
	Queue  QueueConfig
}

// QueueConfig controls background draining and service lookups. Schedule is
// the cron expression of the periodic drain; ServiceCacheTTL bounds how long a
// resolved SMTP service is reused.
type QueueConfig struct {
	Schedule        string        `env:"MAIL_QUEUE_SCHEDULE"    envDefault:"* * * * *"`
	Workers         int           `env:"MAIL_JOB_WORKERS"       envDefault:"10"`
	ServiceCacheTTL time.Duration `env:"MAIL_SERVICE_CACHE_TTL" envDefault:"5m"`
	ServicesFile    string        `env:"SMTP_SERVICES_FILE"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, errors.Join(ErrLoad, err)
	}
	return &cfg, nil
}
