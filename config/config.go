package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // comments-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Driver     string `yaml:"driver"` // postgres|sqlite
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlitePath"`
}

type Session struct {
	BaseURL  string `yaml:"baseURL"` // пусто — auth выключен (локальная разработка)
	Required bool   `yaml:"required"`
	Timeout  string `yaml:"timeout"`
}

type WS struct {
	SweepInterval string `yaml:"sweepInterval"`
	SendBuffer    int    `yaml:"sendBuffer"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Logging   Logging   `yaml:"logging"`
	Storage   Storage   `yaml:"storage"`
	Session   Session   `yaml:"session"`
	WS        WS        `yaml:"ws"`
	RateLimit RateLimit `yaml:"ratelimit"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	switch c.Storage.Driver {
	case "", "postgres":
		c.Storage.Driver = "postgres"
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlitePath is required for the sqlite driver")
		}
	default:
		return errors.New("storage.driver must be postgres or sqlite")
	}
	if c.Session.Required && c.Session.BaseURL == "" {
		return errors.New("session.baseURL is required when session.required is set")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "comments-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 32
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	return nil
}

func (c *Config) SweepInterval() time.Duration {
	return parseDurationOr(30*time.Second, c.WS.SweepInterval)
}

func (c *Config) SessionTimeout() time.Duration {
	return parseDurationOr(5*time.Second, c.Session.Timeout)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
