package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Env  string `env:"APP_ENV" envDefault:"development"`
		Port string `env:"API_PORT" envDefault:"8080"`
	}

	Mongo struct {
		URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		Database string `env:"MONGO_DATABASE" envDefault:"savelife"`
	}

	JWT struct {
		Secret string        `env:"JWT_SECRET"`
		TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	}

	SMTP struct {
		Host     string `env:"EMAIL_HOST"`
		Port     int    `env:"EMAIL_PORT" envDefault:"587"`
		User     string `env:"EMAIL_USER"`
		Password string `env:"EMAIL_PASS"`
		From     string `env:"EMAIL_FROM"`
	}

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	UploadDir   string `env:"UPLOAD_DIR" envDefault:"uploads"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	RateLimit struct {
		PerMinute     int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
		AuthPerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	}
}

// Load reads .env when present, then parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}
