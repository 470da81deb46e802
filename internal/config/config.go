package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ryabkov82/dataset-merger/internal/logger"
	"github.com/ryabkov82/dataset-merger/internal/normalize"
)

// Префикс переменных окружения: MERGER_SERVER_PORT, MERGER_LOG_LEVEL
// и так далее.
const envPrefix = "MERGER_"

// Config - настройки приложения.
type Config struct {
	Server ServerConfig  `koanf:"server" json:"server"`
	Merge  MergeConfig   `koanf:"merge" json:"merge"`
	Log    logger.Config `koanf:"log" json:"log"`
}

// ServerConfig - настройки HTTP-сервера.
type ServerConfig struct {
	Host            string        `koanf:"host" json:"host"`
	Port            int           `koanf:"port" json:"port" validate:"gte=1,lte=65535"`
	MaxUploadSize   int64         `koanf:"max_upload_size" json:"max_upload_size" validate:"gt=0"`
	SessionTTL      time.Duration `koanf:"session_ttl" json:"session_ttl" validate:"gt=0"`
	MaxSessions     int           `koanf:"max_sessions" json:"max_sessions" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `koanf:"allowed_origins" json:"allowed_origins"`
}

// MergeConfig - параметры объединения по умолчанию.
type MergeConfig struct {
	PreviewRows   int  `koanf:"preview_rows" json:"preview_rows" validate:"gt=0"`
	Lower         bool `koanf:"lower" json:"lower"`
	Strip         bool `koanf:"strip" json:"strip"`
	RemoveAccents bool `koanf:"remove_accents" json:"remove_accents"`
}

// NormalizeOptions переводит настройки в опции нормализации ключей.
func (c *MergeConfig) NormalizeOptions() normalize.Options {
	return normalize.Options{
		Lower:         c.Lower,
		Strip:         c.Strip,
		RemoveAccents: c.RemoveAccents,
	}
}

// Default возвращает настройки по умолчанию.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxUploadSize:   64 << 20,
			SessionTTL:      time.Hour,
			MaxSessions:     128,
			ShutdownTimeout: 10 * time.Second,
		},
		Merge: MergeConfig{
			PreviewRows:   100,
			Lower:         true,
			Strip:         true,
			RemoveAccents: true,
		},
		Log: logger.Config{Level: "info"},
	}
}

// Load собирает конфигурацию: значения по умолчанию, поверх них -
// переменные окружения с префиксом MERGER_.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("ошибка загрузки настроек по умолчанию: %v", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key string, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %v", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %v", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// transformEnvKey переводит имя переменной окружения в путь настройки:
// SERVER_MAX_UPLOAD_SIZE -> server.max_upload_size.
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

var validate = validator.New()

// Validate проверяет значения настроек.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("некорректная конфигурация: %v", err)
	}
	return nil
}
