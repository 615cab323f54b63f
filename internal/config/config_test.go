package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CONFIG_FILE", "PORT", "IMPORT_CHUNK_SIZE", "IMPORT_SESSION_TTL", "MIGRATIONS_PATH"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Import.ChunkSize != 50 {
		t.Errorf("ChunkSize = %d, want 50", cfg.Import.ChunkSize)
	}
	if cfg.Import.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.Import.SessionTTL)
	}
	if cfg.Database.MigrationsPath != "./migrations" {
		t.Errorf("MigrationsPath = %s", cfg.Database.MigrationsPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("IMPORT_CHUNK_SIZE", "200")
	t.Setenv("IMPORT_SESSION_TTL", "5m")
	t.Setenv("MAX_UPLOAD_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Import.ChunkSize != 200 {
		t.Errorf("ChunkSize = %d, want 200", cfg.Import.ChunkSize)
	}
	if cfg.Import.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", cfg.Import.SessionTTL)
	}
	if cfg.Import.MaxUploadSize != 10*1024*1024 {
		t.Errorf("invalid env value should fall back to default, got %d", cfg.Import.MaxUploadSize)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: "9090"
import:
  chunk_size: 25
  session_ttl: 45m
log:
  format: pretty
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_NAME", "from_env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Import.ChunkSize != 25 {
		t.Errorf("ChunkSize = %d, want 25", cfg.Import.ChunkSize)
	}
	if cfg.Import.SessionTTL != 45*time.Minute {
		t.Errorf("SessionTTL = %v, want 45m", cfg.Import.SessionTTL)
	}
	if cfg.Log.Format != "pretty" {
		t.Errorf("Log.Format = %s, want pretty", cfg.Log.Format)
	}
	if cfg.Database.Name != "from_env" {
		t.Errorf("keys absent from the file must keep env values, got %s", cfg.Database.Name)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "localhost", Name: "crm"},
			Import:   ImportConfig{ChunkSize: 10, MaxUploadSize: 1024, MaxConcurrentCommits: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, true},
		{"zero chunk size", func(c *Config) { c.Import.ChunkSize = 0 }, true},
		{"zero upload size", func(c *Config) { c.Import.MaxUploadSize = 0 }, true},
		{"zero commit workers", func(c *Config) { c.Import.MaxConcurrentCommits = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
