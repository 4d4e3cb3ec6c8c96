package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverlay holds PROTOSTAR_* variables. Unset variables stay nil and
// leave the loaded value alone.
type envOverlay struct {
	Connection string `env:"QUEUE_CONNECTION"`

	Host      *string  `env:"QUEUE_HOST"`
	Port      *int     `env:"QUEUE_PORT"`
	Password  *string  `env:"QUEUE_PASSWORD"`
	DB        *int     `env:"QUEUE_DB"`
	Timeout   *float64 `env:"QUEUE_TIMEOUT"`
	QueueName *string  `env:"QUEUE_NAME"`

	LogLevel  *string `env:"LOG_LEVEL"`
	LogFormat *string `env:"LOG_FORMAT"`

	Concurrency  *int           `env:"WORKER_CONCURRENCY"`
	BlockTimeout *time.Duration `env:"WORKER_BLOCK_TIMEOUT"`
	MigrateBatch *int           `env:"WORKER_MIGRATE_BATCH"`
	ErrorDelay   *time.Duration `env:"WORKER_ERROR_DELAY"`
	JobTimeout   *time.Duration `env:"WORKER_JOB_TIMEOUT"`
}

// FromEnv overlays PROTOSTAR_* environment variables onto cfg. Queue
// variables apply to PROTOSTAR_QUEUE_CONNECTION, or the default connection.
func FromEnv(cfg *Config) error {
	var o envOverlay
	if err := env.ParseWithOptions(&o, env.Options{Prefix: "PROTOSTAR_"}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}

	if o.Connection != "" {
		cfg.Queue.Default = o.Connection
	}
	name := cfg.Queue.Default
	if name == "" {
		name = "default"
	}
	if cfg.Queue.Connections == nil {
		cfg.Queue.Connections = make(map[string]Connection)
	}
	conn := cfg.Queue.Connections[name]
	setIf(&conn.Host, o.Host)
	setIf(&conn.Port, o.Port)
	setIf(&conn.Password, o.Password)
	setIf(&conn.DB, o.DB)
	setIf(&conn.Timeout, o.Timeout)
	setIf(&conn.QueueName, o.QueueName)
	cfg.Queue.Connections[name] = conn

	setIf(&cfg.Log.Level, o.LogLevel)
	setIf(&cfg.Log.Format, o.LogFormat)

	setIf(&cfg.Worker.Concurrency, o.Concurrency)
	setIf(&cfg.Worker.MigrateBatch, o.MigrateBatch)
	if o.BlockTimeout != nil {
		cfg.Worker.BlockTimeout = Duration(*o.BlockTimeout)
	}
	if o.ErrorDelay != nil {
		cfg.Worker.ErrorDelay = Duration(*o.ErrorDelay)
	}
	if o.JobTimeout != nil {
		cfg.Worker.JobTimeout = Duration(*o.JobTimeout)
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
