package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Create new config instance with the service defaults
func NewConfig() *Config {
	return &Config{
		Server: Server{
			Port:            3000,
			ReadTimeout:     60,
			WriteTimeout:    300,
			ShutdownTimeout: 10,
		},
		Upload: UploadConfig{
			MaxFileSizeMB:        50,
			MaxFiles:             50,
			MaxMultipartMemoryMB: 32,
			Workers:              1,
		},
		Store: StoreConfig{
			Backend:   "memory",
			TTL:       600,
			Namespace: "imageconv",
		},
		Redis: RedisConfig{
			HealthCheckInterval: 30,
			DialTimeout:         5,
			ReadTimeout:         3,
			WriteTimeout:        3,
			PoolSize:            20,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load configuration file in json format. Fields absent from the file keep
// their current values.
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := envInt("PORT"); ok {
		c.Server.Port = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v, ok := envInt("RETENTION_MINUTES"); ok {
		c.Store.TTL = time.Duration(v) * 60
	}
	if v, ok := envInt("UPLOAD_WORKERS"); ok {
		c.Upload.Workers = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		if host, port, err := net.SplitHostPort(v); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Nodes = []RedisNode{{Host: host, Port: p}}
			}
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.Sentry.SentryDSN = v
	}
	if v := os.Getenv("SENTRY_ENVIRONMENT"); v != "" {
		c.Sentry.Environment = v
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == "redis" && len(c.Redis.Nodes) == 0 {
		return fmt.Errorf("invalid config: redis store requires at least one redis node")
	}
	return nil
}

// Retention is the job retention window.
func (c *Config) Retention() time.Duration {
	return c.Store.TTL * time.Second
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
