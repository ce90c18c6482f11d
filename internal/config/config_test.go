package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Retention() != 10*time.Minute {
		t.Errorf("retention = %v, want 10m", cfg.Retention())
	}
	if cfg.Upload.MaxFiles != 50 || cfg.Upload.MaxFileSizeMB != 50 {
		t.Errorf("upload limits = %+v", cfg.Upload)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestReadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server":{"port":8081},"store":{"backend":"redis","ttl":120},"redis":{"nodes":[{"host":"cache","port":6380}]}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.Read(path); err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Upload.MaxFiles != 50 {
		t.Errorf("max files = %d, default should survive", cfg.Upload.MaxFiles)
	}
	if cfg.Retention() != 2*time.Minute {
		t.Errorf("retention = %v, want 2m", cfg.Retention())
	}
	if got := cfg.Redis.Nodes[0].Addr(); got != "cache:6380" {
		t.Errorf("redis addr = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestReadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewConfig().Read(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "REDIS")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RETENTION_MINUTES", "1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := NewConfig()
	cfg.ApplyEnv()

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if len(cfg.Redis.Nodes) != 1 || cfg.Redis.Nodes[0].Addr() != "localhost:6379" {
		t.Errorf("nodes = %+v", cfg.Redis.Nodes)
	}
	if cfg.Retention() != time.Minute {
		t.Errorf("retention = %v", cfg.Retention())
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"port out of range":   func(c *Config) { c.Server.Port = 70000 },
		"unknown backend":     func(c *Config) { c.Store.Backend = "disk" },
		"zero workers":        func(c *Config) { c.Upload.Workers = 0 },
		"redis without nodes": func(c *Config) { c.Store.Backend = "redis" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
