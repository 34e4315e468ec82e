package ledger

import (
	"fmt"
	"strconv"
)

// RPCConfig holds the provider endpoints and the contract the ledger binds to.
// FallbackURL is a public RPC endpoint used when the primary (usually a
// wallet-local node) cannot be reached.
type RPCConfig struct {
	URL             string `json:"url"`
	FallbackURL     string `json:"fallback_url"`
	ContractAddress string `json:"contract_address"`
	ChainID         uint64 `json:"chain_id"`
	Network         string `json:"network"`
}

// NetworkPresets contains default provider configurations for known networks.
// Presets never carry a contract address; the deployment must be named explicitly.
var NetworkPresets = map[string]RPCConfig{
	"bsc": {
		URL:         "https://bsc-dataseed.bnbchain.org",
		FallbackURL: "https://bsc-dataseed1.defibit.io",
		ChainID:     56,
	},
	"bsc-testnet": {
		URL:         "https://data-seed-prebsc-1-s1.bnbchain.org:8545",
		FallbackURL: "https://data-seed-prebsc-2-s1.bnbchain.org:8545",
		ChainID:     97,
	},
	"localhost": {
		URL:     "http://127.0.0.1:8545",
		ChainID: 31337,
	},
}

// ResolveConfig merges provider configuration from three sources with decreasing priority:
//  1. CLI flags (highest priority)
//  2. Environment variables (SPEEDTRACK_RPC_URL, SPEEDTRACK_FALLBACK_RPC_URL,
//     SPEEDTRACK_CONTRACT, SPEEDTRACK_CHAIN_ID)
//  3. Network presets (lowest priority)
//
// Both an RPC URL and a contract address are required after merging.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if env != nil {
		if v, ok := env["SPEEDTRACK_RPC_URL"]; ok && v != "" {
			result.URL = v
		}
		if v, ok := env["SPEEDTRACK_FALLBACK_RPC_URL"]; ok && v != "" {
			result.FallbackURL = v
		}
		if v, ok := env["SPEEDTRACK_CONTRACT"]; ok && v != "" {
			result.ContractAddress = v
		}
		if v, ok := env["SPEEDTRACK_CHAIN_ID"]; ok && v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ledger: invalid SPEEDTRACK_CHAIN_ID %q: %w", v, err)
			}
			result.ChainID = id
		}
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.FallbackURL != "" {
			result.FallbackURL = flags.FallbackURL
		}
		if flags.ContractAddress != "" {
			result.ContractAddress = flags.ContractAddress
		}
		if flags.ChainID != 0 {
			result.ChainID = flags.ChainID
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("ledger: %s requires explicit RPC configuration (set --rpc-url, SPEEDTRACK_RPC_URL, or config file)", network)
	}
	if result.ContractAddress == "" {
		return nil, fmt.Errorf("ledger: contract address is required (set --contract, SPEEDTRACK_CONTRACT, or config file)")
	}
	if _, err := NormalizeAddress(result.ContractAddress); err != nil {
		return nil, err
	}

	return &result, nil
}
