package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedtrackorg/libspeedtrack-go/config"
	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// resetFlags restores the global flag state once the test is done.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		rpcURL, contract, networkName, verbose = "", "", "", false
		for _, cmd := range rootCmd.Commands() {
			for _, name := range []string{"listen", "force"} {
				if f := cmd.Flags().Lookup(name); f != nil {
					_ = f.Value.Set(f.DefValue)
					f.Changed = false
				}
			}
		}
		if f := rootCmd.PersistentFlags().Lookup("config"); f != nil {
			f.Changed = false
		}
	})
}

// executeContext runs the root command with ctx. Subcommands keep the
// context of their first run, so it is set on each of them explicitly.
func executeContext(ctx context.Context, out io.Writer, args ...string) error {
	for _, cmd := range rootCmd.Commands() {
		cmd.SetContext(ctx)
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	var out bytes.Buffer
	err := executeContext(context.Background(), &out, args...)
	return out.String(), err
}

func TestProviderEnv_Precedence(t *testing.T) {
	c := config.DefaultConfig()
	c.RPCURL = "http://file:8545"
	c.ContractAddress = testContract
	c.ChainID = 97

	env := providerEnv(c, map[string]string{
		"SPEEDTRACK_RPC_URL":  "http://env:8545",
		"SPEEDTRACK_CONTRACT": "",
	})

	assert.Equal(t, "http://env:8545", env["SPEEDTRACK_RPC_URL"])
	assert.Equal(t, testContract, env["SPEEDTRACK_CONTRACT"])
	assert.Equal(t, "97", env["SPEEDTRACK_CHAIN_ID"])
	_, ok := env["SPEEDTRACK_FALLBACK_RPC_URL"]
	assert.False(t, ok, "empty file values must not shadow presets")

	rpc, err := ledger.ResolveConfig(&ledger.RPCConfig{URL: "http://flag:8545"}, env, "bsc")
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8545", rpc.URL)
	assert.Equal(t, "https://bsc-dataseed1.defibit.io", rpc.FallbackURL)
	assert.Equal(t, uint64(97), rpc.ChainID)
	assert.Equal(t, testContract, rpc.ContractAddress)
}

func TestEnviron_OnlySpeedtrackKeys(t *testing.T) {
	t.Setenv("SPEEDTRACK_CONTRACT", testContract)
	t.Setenv("UNRELATED_SETTING", "x")

	env := environ()
	assert.Equal(t, testContract, env["SPEEDTRACK_CONTRACT"])
	_, ok := env["UNRELATED_SETTING"]
	assert.False(t, ok)
}

func TestInit_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "init", "--config", path, "--network", "bsc-testnet", "--contract", testContract)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bsc-testnet", loaded.Network)
	assert.Equal(t, testContract, loaded.ContractAddress)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: bsc\n"), 0600))

	_, err := execute(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestStatus_MissingExplicitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := execute(t, "status", "--config", path, testContract)
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestStatus_InvalidNetworkFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: bsc\n"), 0600))

	_, err := execute(t, "status", "--config", path, "--network", "polygon", testContract)
	assert.ErrorIs(t, err, config.ErrInvalidNetwork)
}
