// Package settings holds the durable key/value configuration shared by
// every worker and CLI process. Values are opaque strings; the engine
// interprets only KeyBaseBackoff and KeyMaxRetries.
package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/KarthikHK-01/queuectl"
)

// Keys interpreted by the engine.
const (
	// KeyBaseBackoff is the base of the exponential retry delay in seconds.
	KeyBaseBackoff = "base-backoff"
	// KeyMaxRetries is the retry ceiling for jobs enqueued without one.
	KeyMaxRetries = "max_retries"
)

// Defaults applied when a key is absent.
const (
	DefaultBaseBackoff = 2.0
	DefaultMaxRetries  = 3
)

// Entry is one key/value pair.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store defines the persistence contract for settings.
type Store interface {
	// GetSetting returns the value for key or queuectl.ErrConfigNotFound.
	GetSetting(ctx context.Context, key string) (string, error)

	// ListSettings returns every entry ordered by key.
	ListSettings(ctx context.Context) ([]Entry, error)

	// SetSetting inserts or replaces the value for key.
	SetSetting(ctx context.Context, key, value string) error

	// DeleteSetting removes key. Returns queuectl.ErrConfigNotFound when
	// nothing was deleted.
	DeleteSetting(ctx context.Context, key string) error
}

// BaseBackoff reads KeyBaseBackoff, falling back to DefaultBaseBackoff
// when the key is absent. A present but non-positive or non-numeric value
// is an error so that a typo never silently disables backoff.
func BaseBackoff(ctx context.Context, s Store) (float64, error) {
	v, err := s.GetSetting(ctx, KeyBaseBackoff)
	if errors.Is(err, queuectl.ErrConfigNotFound) {
		return DefaultBaseBackoff, nil
	}
	if err != nil {
		return 0, err
	}
	base, err := strconv.ParseFloat(v, 64)
	if err != nil || base <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", queuectl.ErrInvalidConfig, KeyBaseBackoff, v)
	}
	return base, nil
}

// MaxRetries reads KeyMaxRetries, falling back to DefaultMaxRetries.
func MaxRetries(ctx context.Context, s Store) (int, error) {
	v, err := s.GetSetting(ctx, KeyMaxRetries)
	if errors.Is(err, queuectl.ErrConfigNotFound) {
		return DefaultMaxRetries, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", queuectl.ErrInvalidConfig, KeyMaxRetries, v)
	}
	return n, nil
}

// ValidateKey rejects empty keys.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: config key must not be empty", queuectl.ErrInvalidConfig)
	}
	return nil
}

// Validate checks key and, for keys the engine interprets, value.
// Unknown keys accept any value.
func Validate(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	switch key {
	case KeyBaseBackoff:
		if base, err := strconv.ParseFloat(value, 64); err != nil || base <= 0 || math.IsInf(base, 0) {
			return fmt.Errorf("%w: %s must be a positive number, got %q", queuectl.ErrInvalidConfig, key, value)
		}
	case KeyMaxRetries:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer, got %q", queuectl.ErrInvalidConfig, key, value)
		}
	}
	return nil
}
