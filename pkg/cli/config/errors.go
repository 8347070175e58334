package config

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidLogLevel  = goerr.New("invalid log level")
	ErrInvalidLogFormat = goerr.New("invalid log format")

	ErrUnknownProvider = goerr.New("unknown LLM provider")
	ErrUnknownBackend  = goerr.New("unknown storage backend")

	// ErrInvalidSources is returned when the sources file cannot be used
	ErrInvalidSources = goerr.New("invalid sources file")
)
