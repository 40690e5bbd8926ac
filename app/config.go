package main

import "io"

// DatabaseConfig holds tunables for opening a database file.
type DatabaseConfig struct {
	MaxConcurrency int // cap on concurrent page reads
}

// DatabaseOption is a functional option for DatabaseConfig.
type DatabaseOption func(*DatabaseConfig)

// WithMaxConcurrency bounds how many pages may be read at once.
func WithMaxConcurrency(max int) DatabaseOption {
	return func(cfg *DatabaseConfig) {
		cfg.MaxConcurrency = max
	}
}

// DefaultDatabaseConfig returns the default configuration.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{MaxConcurrency: 8}
}

// ResourceManager closes a LIFO stack of resources, collecting the last
// error encountered so a single deferred Close() can clean everything up
// on every return path.
type ResourceManager struct {
	resources []io.Closer
}

func NewResourceManager() *ResourceManager {
	return &ResourceManager{}
}

func (rm *ResourceManager) Add(resource io.Closer) {
	rm.resources = append(rm.resources, resource)
}

func (rm *ResourceManager) Close() error {
	var lastErr error
	for i := len(rm.resources) - 1; i >= 0; i-- {
		if err := rm.resources[i].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
