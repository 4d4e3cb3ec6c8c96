package config

import (
	"time"

	"github.com/pyxol/protostar"
)

// Tuning returns the worker settings as a protostar.Config. Zero fields keep
// the protostar.DefaultConfig value, except JobTimeout where zero means no
// limit.
func (w WorkerConfig) Tuning() protostar.Config {
	cfg := protostar.DefaultConfig()
	if w.Concurrency > 0 {
		cfg.Concurrency = w.Concurrency
	}
	if w.BlockTimeout > 0 {
		cfg.BlockTimeout = time.Duration(w.BlockTimeout)
	}
	if w.MigrateBatch > 0 {
		cfg.MigrateBatch = w.MigrateBatch
	}
	if w.ErrorDelay > 0 {
		cfg.ErrorDelay = time.Duration(w.ErrorDelay)
	}
	cfg.JobTimeout = time.Duration(w.JobTimeout)
	return cfg
}
