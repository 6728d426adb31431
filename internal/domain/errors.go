package domain

import "errors"

var (
	ErrStateCorrupt      = errors.New("state document corrupt")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceMalformed   = errors.New("source response malformed")
	ErrModelNotFound     = errors.New("model not found")
	ErrSessionActive     = errors.New("battle session already active")
	ErrSessionStale      = errors.New("battle session result is stale")
	ErrDelivery          = errors.New("notification delivery failed")
	ErrGeneration        = errors.New("generation failed")
)
