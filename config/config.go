package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultConnectTimeout is used when a connection does not set a timeout.
const DefaultConnectTimeout = 2500 * time.Millisecond

// DefaultQueueName is the queue used when neither the caller nor the
// connection names one.
const DefaultQueueName = "default"

var (
	ErrUnknownConnection = errors.New("config: unknown queue connection")
	ErrMissingHost       = errors.New("config: queue connection host not set")
	ErrMissingPort       = errors.New("config: queue connection port not set")
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Queue  QueueConfig  `json:"queue"`
	Log    LogConfig    `json:"log"`
	Worker WorkerConfig `json:"worker"`
}

// QueueConfig lists the named store connections.
type QueueConfig struct {
	Default     string                `json:"default"`
	Connections map[string]Connection `json:"connections"`
}

// Connection describes one Redis endpoint.
type Connection struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`

	// Timeout is the connect timeout in seconds.
	Timeout float64 `json:"timeout"`

	// QueueName is the queue used when a caller does not name one.
	QueueName string `json:"queue_name"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// WorkerConfig holds worker loop tuning.
type WorkerConfig struct {
	Concurrency  int      `json:"concurrency"`
	BlockTimeout Duration `json:"block_timeout"`
	MigrateBatch int      `json:"migrate_batch"`
	ErrorDelay   Duration `json:"error_delay"`
	JobTimeout   Duration `json:"job_timeout"`
}

// Duration is a time.Duration that reads "3s" style strings or a number of
// seconds from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a Go duration string or seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("config: duration must be a string or seconds: %s", b)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns built-in defaults. The default connection has no host or
// port; those must come from the file or the environment.
func Default() Config {
	return Config{
		Queue: QueueConfig{
			Default: "default",
			Connections: map[string]Connection{
				"default": {
					Timeout:   DefaultConnectTimeout.Seconds(),
					QueueName: DefaultQueueName,
				},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Worker: WorkerConfig{
			Concurrency:  1,
			BlockTimeout: Duration(3 * time.Second),
			MigrateBatch: 10,
			ErrorDelay:   Duration(time.Second),
		},
	}
}

// Load reads configuration from a JSON file, then applies the environment.
// If path is empty only defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := FromEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Connection returns the named connection, or the default one when name is
// empty. Host and port are required.
func (c Config) Connection(name string) (Connection, error) {
	if name == "" {
		name = c.Queue.Default
	}
	if name == "" {
		name = "default"
	}
	conn, ok := c.Queue.Connections[name]
	if !ok {
		return Connection{}, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	if conn.Host == "" {
		return Connection{}, fmt.Errorf("%w: %q", ErrMissingHost, name)
	}
	if conn.Port == 0 {
		return Connection{}, fmt.Errorf("%w: %q", ErrMissingPort, name)
	}
	return conn, nil
}

// Addr returns host:port.
func (c Connection) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DialTimeout returns the connect timeout.
func (c Connection) DialTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// Queue returns the connection's default queue name.
func (c Connection) Queue() string {
	if c.QueueName == "" {
		return DefaultQueueName
	}
	return c.QueueName
}

// Get looks up a value by dotted key, e.g. "queue.connections.default.port".
// Numbers come back as float64, as with encoding/json.
func (c Config) Get(key string) (any, bool) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, false
	}
	var cur any
	if err := json.Unmarshal(b, &cur); err != nil {
		return nil, false
	}
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the value at key formatted as a string.
func (c Config) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
