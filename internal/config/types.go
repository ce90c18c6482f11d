package config

import (
	"fmt"
	"time"
)

// Durations are expressed in seconds in the config file.
type Config struct {
	Server Server       `json:"server"`
	Upload UploadConfig `json:"upload"`
	Store  StoreConfig  `json:"store"`
	Redis  RedisConfig  `json:"redis"`
	CORS   CORSConfig   `json:"cors"`
	Sentry SentryConfig `json:"sentry"`
}

type Server struct {
	Port            int           `json:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `json:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"gte=0"`
}

type UploadConfig struct {
	MaxFileSizeMB        int64 `json:"max_file_size" validate:"gte=1"`
	MaxFiles             int   `json:"max_files" validate:"gte=1"`
	MaxMultipartMemoryMB int64 `json:"max_multipart_memory" validate:"gte=1"`
	Workers              int   `json:"workers" validate:"gte=1"` // per-batch transform parallelism
}

// MaxRequestBodyBytes bounds the whole multipart body: every file at the
// ceiling plus room for the form fields.
func (u UploadConfig) MaxRequestBodyBytes() int64 {
	return u.MaxFileSizeMB<<20*int64(u.MaxFiles) + 1<<20
}

type StoreConfig struct {
	Backend   string        `json:"backend" validate:"oneof=memory redis"`
	TTL       time.Duration `json:"ttl" validate:"gte=1"`
	Namespace string        `json:"namespace" validate:"required_if=Backend redis"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
