package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validNetworks lists the accepted network names; "custom" requires an RPC URL.
var validNetworks = map[string]bool{
	"bsc":         true,
	"bsc-testnet": true,
	"localhost":   true,
	"custom":      true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validNetworks[cfg.Network] {
		return ErrInvalidNetwork
	}
	if cfg.Network == "custom" && cfg.RPCURL == "" {
		return fmt.Errorf("%w: custom network requires rpc_url", ErrInvalidNetwork)
	}

	if cfg.ContractAddress != "" && !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidContract, cfg.ContractAddress)
	}

	if err := validateAddr(cfg.ListenAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.PollInterval <= 0 || cfg.ReadTimeout <= 0 {
		return ErrInvalidInterval
	}

	if cfg.MaxAttempts < 1 || cfg.RetryDelay < 0 {
		return ErrInvalidRetry
	}

	if cfg.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if cfg.Cache != CacheMemory && cfg.Cache != CacheBolt {
		return ErrInvalidCache
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
