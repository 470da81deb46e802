package logger

import (
	"context"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Config управляет уровнем и форматом логирования.
type Config struct {
	Level     string `koanf:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON      bool   `koanf:"json" json:"json"`
	AddSource bool   `koanf:"add_source" json:"add_source"`
}

// New создает логгер с настройками из конфигурации. Незнакомый
// уровень молча заменяется на info.
func New(cfg Config) *charmlog.Logger {
	level, err := charmlog.ParseLevel(cfg.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		ReportCaller:    cfg.AddSource,
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return l
}

type ctxKey struct{}

// ContextWithLogger возвращает контекст с привязанным логгером.
func ContextWithLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext достает логгер из контекста. Если логгера там нет,
// возвращается логгер по умолчанию.
func FromContext(ctx context.Context) *charmlog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*charmlog.Logger); ok {
			return l
		}
	}
	return charmlog.Default()
}
