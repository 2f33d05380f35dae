package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RegistryMemory   = "memory"
	RegistryPostgres = "postgres"
	RegistrySQLite   = "sqlite"
)

type HTTPConfig struct {
	Host               string
	Port               int
	MaxMultipartMemory int64
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RegistryConfig struct {
	Driver     string
	SQLitePath string
	SeedFile   string
}

type OCRConfig struct {
	Languages     []string
	MinConfidence float64
	MinLength     int
}

type Config struct {
	Environment string
	Debug       bool
	HTTP        HTTPConfig
	DB          DBConfig
	Registry    RegistryConfig
	OCR         OCRConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 5000)
	v.SetDefault("HTTP_MAX_MULTIPART_MEMORY", 32<<20)
	v.SetDefault("REGISTRY_DRIVER", RegistryMemory)
	v.SetDefault("SQLITE_PATH", "plates.db")
	v.SetDefault("OCR_LANGUAGES", "ara,eng")
	v.SetDefault("OCR_MIN_CONFIDENCE", 0.3)
	v.SetDefault("OCR_MIN_LENGTH", 3)

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		Debug:       v.GetBool("DEBUG"),
		HTTP: HTTPConfig{
			Host:               v.GetString("HTTP_HOST"),
			Port:               v.GetInt("HTTP_PORT"),
			MaxMultipartMemory: v.GetInt64("HTTP_MAX_MULTIPART_MEMORY"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Registry: RegistryConfig{
			Driver:     strings.ToLower(strings.TrimSpace(v.GetString("REGISTRY_DRIVER"))),
			SQLitePath: v.GetString("SQLITE_PATH"),
			SeedFile:   strings.TrimSpace(v.GetString("REGISTRY_SEED_FILE")),
		},
		OCR: OCRConfig{
			Languages:     splitList(v.GetString("OCR_LANGUAGES")),
			MinConfidence: v.GetFloat64("OCR_MIN_CONFIDENCE"),
			MinLength:     v.GetInt("OCR_MIN_LENGTH"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 5000
	}
	if cfg.Registry.Driver == "" {
		cfg.Registry.Driver = RegistryMemory
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"ara", "eng"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Registry.Driver {
	case RegistryMemory, RegistrySQLite:
	case RegistryPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s registry", RegistryPostgres)
		}
	default:
		return fmt.Errorf("unknown REGISTRY_DRIVER %q", cfg.Registry.Driver)
	}
	if cfg.Registry.Driver == RegistrySQLite && cfg.Registry.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the %s registry", RegistrySQLite)
	}
	if cfg.OCR.MinConfidence < 0 || cfg.OCR.MinConfidence >= 1 {
		return fmt.Errorf("OCR_MIN_CONFIDENCE must be in [0,1), got %v", cfg.OCR.MinConfidence)
	}
	if cfg.OCR.MinLength < 0 {
		return fmt.Errorf("OCR_MIN_LENGTH must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
