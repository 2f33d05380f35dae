package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGISTRY_DRIVER", "")
	t.Setenv("HTTP_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Port != 5000 {
		t.Errorf("HTTP.Port = %d, want 5000", cfg.HTTP.Port)
	}
	if cfg.Registry.Driver != RegistryMemory {
		t.Errorf("Registry.Driver = %q, want %q", cfg.Registry.Driver, RegistryMemory)
	}
	if cfg.OCR.MinConfidence != 0.3 || cfg.OCR.MinLength != 3 {
		t.Errorf("OCR thresholds = %v/%d, want 0.3/3", cfg.OCR.MinConfidence, cfg.OCR.MinLength)
	}
	if strings.Join(cfg.OCR.Languages, ",") != "ara,eng" {
		t.Errorf("OCR.Languages = %v", cfg.OCR.Languages)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DEBUG", "true")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("REGISTRY_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("OCR_LANGUAGES", " eng , ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "production" || !cfg.Debug {
		t.Errorf("Environment/Debug = %q/%v", cfg.Environment, cfg.Debug)
	}
	if cfg.HTTP.Port != 8088 {
		t.Errorf("HTTP.Port = %d, want 8088", cfg.HTTP.Port)
	}
	if cfg.Registry.Driver != RegistrySQLite || cfg.Registry.SQLitePath != "/tmp/x.db" {
		t.Errorf("Registry = %+v", cfg.Registry)
	}
	if len(cfg.OCR.Languages) != 1 || cfg.OCR.Languages[0] != "eng" {
		t.Errorf("OCR.Languages = %v", cfg.OCR.Languages)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{
			name:    "postgres without dsn",
			values:  map[string]any{"REGISTRY_DRIVER": "postgres"},
			wantErr: "DB_DSN is required",
		},
		{
			name:    "unknown driver",
			values:  map[string]any{"REGISTRY_DRIVER": "redis"},
			wantErr: "unknown REGISTRY_DRIVER",
		},
		{
			name:    "confidence out of range",
			values:  map[string]any{"OCR_MIN_CONFIDENCE": 1.5},
			wantErr: "OCR_MIN_CONFIDENCE",
		},
		{
			name:   "zero ocr thresholds",
			values: map[string]any{"OCR_MIN_CONFIDENCE": 0, "OCR_MIN_LENGTH": 0},
		},
		{
			name:   "postgres with dsn",
			values: map[string]any{"REGISTRY_DRIVER": "postgres", "DB_DSN": "postgres://localhost/plates"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("fromViper() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("fromViper() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestZeroOCRThresholdsAreKept(t *testing.T) {
	v := viper.New()
	v.Set("OCR_MIN_CONFIDENCE", 0)
	v.Set("OCR_MIN_LENGTH", 0)

	cfg, err := fromViper(v)
	if err != nil {
		t.Fatalf("fromViper() error = %v", err)
	}
	if cfg.OCR.MinConfidence != 0 || cfg.OCR.MinLength != 0 {
		t.Errorf("OCR thresholds = %v/%d, want 0/0", cfg.OCR.MinConfidence, cfg.OCR.MinLength)
	}
}
