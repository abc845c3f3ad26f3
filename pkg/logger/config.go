package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std" // text handler, для локальной разработки
	BackendZap Backend = "zap" // JSON через slog-zap, с сэмплированием
)

type Config struct {
	// Метаданные сервиса
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: zap в prod, std в dev
	Debug   bool

	// Zap sampling
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

func DetectEnv() Env {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "prod", "production":
		return EnvProd
	default:
		return EnvDev
	}
}
