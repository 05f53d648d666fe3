package dto

import "errors"

// Failure taxonomy for the monitoring cycle. Adapters wrap their transport
// errors with these sentinels so the engine can match them with errors.Is.
var (
	ErrSourceUnavailable = errors.New("price source unavailable")
	ErrMalformedResponse = errors.New("malformed price source response")
	ErrOracleUnavailable = errors.New("judgment oracle unavailable")
	ErrOracleTimeout     = errors.New("judgment oracle timed out")
	ErrDeliveryFailed    = errors.New("alert delivery failed")
	ErrStoreUnavailable  = errors.New("persistence store unavailable")
	ErrConfigInvalid     = errors.New("invalid configuration")
)
