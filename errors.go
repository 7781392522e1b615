package queuectl

import "errors"

var (
	// Store errors.
	ErrNoStore          = errors.New("queuectl: no store configured")
	ErrStoreUnavailable = errors.New("queuectl: store unavailable")
	ErrMigrationFailed  = errors.New("queuectl: migration failed")

	// Not found errors.
	ErrJobNotFound    = errors.New("queuectl: job not found")
	ErrConfigNotFound = errors.New("queuectl: config key not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("queuectl: job already exists")

	// State errors.
	ErrInvalidState = errors.New("queuectl: invalid state transition")
	ErrInvalidJob   = errors.New("queuectl: invalid job")

	// ErrExecutionFailure marks a command that ran and reported failure.
	// The worker converts it into a retry or dead-letter transition; it is
	// never returned from engine operations.
	ErrExecutionFailure = errors.New("queuectl: execution failure")

	// Config file errors.
	ErrInvalidConfig = errors.New("queuectl: invalid config")
)
