package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/speedtrackorg/libspeedtrack-go/config"
	"github.com/speedtrackorg/libspeedtrack-go/flow"
	"github.com/speedtrackorg/libspeedtrack-go/ledger"
	"github.com/speedtrackorg/libspeedtrack-go/store"
)

// loadConfig reads the config file and applies the --network flag. A missing
// file means defaults, unless --config named it explicitly for a command
// other than init.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	c, err := config.LoadConfig(configPath)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrConfigNotFound) && (cmd == initCmd || !cmd.Flags().Changed("config")):
		c = config.DefaultConfig()
	default:
		return config.Config{}, err
	}

	if networkName != "" {
		c.Network = networkName
	}
	if c.Network == "custom" && c.RPCURL == "" {
		c.RPCURL = rpcURL
		if c.RPCURL == "" {
			c.RPCURL = os.Getenv("SPEEDTRACK_RPC_URL")
		}
	}
	if err := config.ValidateConfig(c); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

// environ returns the SPEEDTRACK_* variables of the process environment.
func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, "SPEEDTRACK_") {
			env[k] = v
		}
	}
	return env
}

// providerEnv layers the config file under the environment so that
// ResolveConfig sees flags > env > file > preset.
func providerEnv(c config.Config, env map[string]string) map[string]string {
	merged := make(map[string]string, len(env)+4)
	fromFile := map[string]string{
		"SPEEDTRACK_RPC_URL":          c.RPCURL,
		"SPEEDTRACK_FALLBACK_RPC_URL": c.FallbackRPCURL,
		"SPEEDTRACK_CONTRACT":         c.ContractAddress,
	}
	if c.ChainID != 0 {
		fromFile["SPEEDTRACK_CHAIN_ID"] = strconv.FormatUint(c.ChainID, 10)
	}
	for k, v := range fromFile {
		if v != "" {
			merged[k] = v
		}
	}
	for k, v := range env {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

// app bundles the provider, cache and reducer a command runs against.
type app struct {
	client  *ledger.ContractClient
	ledger  ledger.Ledger
	cache   flow.Cache
	reducer *flow.Reducer

	closeCache func() error
}

func openApp(ctx context.Context, c config.Config, log *zap.Logger) (*app, error) {
	rpc, err := ledger.ResolveConfig(&ledger.RPCConfig{
		URL:             rpcURL,
		ContractAddress: contract,
	}, providerEnv(c, environ()), c.Network)
	if err != nil {
		return nil, err
	}

	client, err := ledger.Dial(ctx, *rpc)
	if err != nil {
		return nil, err
	}
	log.Debug("connected to provider",
		zap.String("endpoint", client.Endpoint()),
		zap.String("contract", client.Address().Hex()),
		zap.Uint64("chain_id", rpc.ChainID))

	a := &app{client: client, ledger: client, closeCache: func() error { return nil }}
	if c.RateLimit > 0 {
		burst := int(c.RateLimit)
		a.ledger = ledger.NewRateLimited(client, c.RateLimit, burst)
	}

	switch c.Cache {
	case config.CacheBolt:
		bc, err := store.OpenBoltCache(filepath.Join(c.DataDir, store.DefaultFileName), store.WithLogger(log.Named("store")))
		if err != nil {
			client.Close()
			return nil, err
		}
		a.cache = bc
		a.closeCache = bc.Close
	default:
		a.cache = flow.NewMemoryCache()
	}

	a.reducer = flow.NewReducer(a.ledger, a.cache,
		flow.WithRetryPolicy(flow.RetryPolicy{MaxAttempts: c.MaxAttempts, BaseDelay: c.RetryDelay}),
		flow.WithReadTimeout(c.ReadTimeout),
		flow.WithLogger(log.Named("flow")),
	)
	return a, nil
}

// input builds a reducer input for address, checking the provider's chain.
func (a *app) input(ctx context.Context, address string) (flow.Input, error) {
	correct, err := a.client.CheckChain(ctx)
	if err != nil {
		return flow.Input{}, err
	}
	return flow.Input{Address: address, Connected: true, CorrectNetwork: correct}, nil
}

func (a *app) Close() error {
	a.client.Close()
	if err := a.closeCache(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}
