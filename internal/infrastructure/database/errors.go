package database

import "errors"

// Sentinel errors for database operations.
var (
	// ErrUnsupportedDriver indicates a driver name this package cannot open.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("database: connection failed")

	// ErrQueryFailed indicates a read query failed.
	ErrQueryFailed = errors.New("database: query failed")
)
