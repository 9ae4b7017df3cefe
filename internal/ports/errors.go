package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard
// errors so callers can classify failures without importing vendor packages.
var (
	// General Errors
	ErrUnknown          = errors.New("unknown error occurred")
	ErrNotFound         = errors.New("no data found for symbol or pair")
	ErrTimeout          = errors.New("operation timed out")
	ErrContextCanceled  = errors.New("operation canceled via context")
	ErrValidation       = errors.New("invalid argument")
	ErrConfiguration    = errors.New("invalid or missing configuration")
	ErrAllSourcesFailed = errors.New("all data sources failed")

	// Data Source Errors
	ErrSourceUnavailable    = errors.New("data source is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the data source")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("data source authentication failed (check API keys)")
	ErrInvalidRequest       = errors.New("invalid request parameters or format")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
