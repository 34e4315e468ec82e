package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not recognized.
	ErrInvalidNetwork = errors.New("config: invalid network (must be \"bsc\", \"bsc-testnet\", \"localhost\", or \"custom\")")

	// ErrInvalidListenAddr indicates the listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigFile indicates the configuration file is not valid YAML.
	ErrInvalidConfigFile = errors.New("config: invalid configuration file")

	// ErrInvalidContract indicates the contract address is not a hex address.
	ErrInvalidContract = errors.New("config: invalid contract address")

	// ErrInvalidInterval indicates a non-positive poll interval or read timeout.
	ErrInvalidInterval = errors.New("config: poll interval and read timeout must be positive")

	// ErrInvalidRetry indicates max_attempts below 1 or a negative retry delay.
	ErrInvalidRetry = errors.New("config: max_attempts must be at least 1 and retry_delay non-negative")

	// ErrInvalidRateLimit indicates a negative rate limit.
	ErrInvalidRateLimit = errors.New("config: rate_limit must not be negative")

	// ErrInvalidCache indicates an unknown cache backend.
	ErrInvalidCache = errors.New("config: invalid cache (must be \"memory\" or \"bolt\")")
)
