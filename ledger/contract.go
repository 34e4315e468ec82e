package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ContractClient reads the Speed Track contract through a go-ethereum provider.
type ContractClient struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	address  common.Address
	chainID  uint64
	endpoint string
}

// Compile-time interface check.
var _ Ledger = (*ContractClient)(nil)

// Dial connects to the primary RPC endpoint, falling back to FallbackURL when
// the primary does not answer eth_chainId. The chain id is not enforced here;
// use CheckChain to surface a mismatch.
func Dial(ctx context.Context, cfg RPCConfig) (*ContractClient, error) {
	contract, err := NormalizeAddress(cfg.ContractAddress)
	if err != nil {
		return nil, err
	}

	endpoints := []string{cfg.URL}
	if cfg.FallbackURL != "" && cfg.FallbackURL != cfg.URL {
		endpoints = append(endpoints, cfg.FallbackURL)
	}

	lastErr := errors.New("no RPC endpoint configured")
	for _, url := range endpoints {
		if url == "" {
			continue
		}
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := client.ChainID(ctx); err != nil {
			client.Close()
			lastErr = err
			continue
		}
		return NewContractClient(client, common.HexToAddress(contract), cfg.ChainID, url)
	}
	return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, lastErr)
}

// NewContractClient binds an existing provider to the contract at address.
// A zero chainID disables the chain check.
func NewContractClient(client *ethclient.Client, address common.Address, chainID uint64, endpoint string) (*ContractClient, error) {
	parsed, err := parseABI()
	if err != nil {
		return nil, fmt.Errorf("ledger: parse contract ABI: %w", err)
	}
	return &ContractClient{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		address:  address,
		chainID:  chainID,
		endpoint: endpoint,
	}, nil
}

// Endpoint returns the RPC URL the client is connected to.
func (c *ContractClient) Endpoint() string { return c.endpoint }

// Address returns the bound contract address.
func (c *ContractClient) Address() common.Address { return c.address }

// Close releases the underlying provider connection.
func (c *ContractClient) Close() { c.client.Close() }

// RegistrationID returns the user id assigned to address, or 0 if unregistered.
func (c *ContractClient) RegistrationID(ctx context.Context, address string) (uint64, error) {
	user, err := parseAddress(address)
	if err != nil {
		return 0, err
	}
	out, err := c.call(ctx, methodRegistrationID, user)
	if err != nil {
		return 0, err
	}
	id, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T", ErrInvalidResponse, methodRegistrationID, out[0])
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("%w: registration id %s overflows uint64", ErrInvalidResponse, id)
	}
	return id.Uint64(), nil
}

// ActivationStatus returns the activation flag and tier of address.
func (c *ContractClient) ActivationStatus(ctx context.Context, address string) (*Activation, error) {
	user, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, methodActivationStatus, user)
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrInvalidResponse, methodActivationStatus, len(out))
	}
	activated, ok := out[0].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s activated is %T", ErrInvalidResponse, methodActivationStatus, out[0])
	}
	level, ok := out[1].(uint8)
	if !ok {
		return nil, fmt.Errorf("%w: %s level is %T", ErrInvalidResponse, methodActivationStatus, out[1])
	}
	return &Activation{Activated: activated, Level: level}, nil
}

// ProfileComplete reports whether address has completed its profile.
func (c *ContractClient) ProfileComplete(ctx context.Context, address string) (bool, error) {
	user, err := parseAddress(address)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, methodProfileComplete, user)
	if err != nil {
		return false, err
	}
	done, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T", ErrInvalidResponse, methodProfileComplete, out[0])
	}
	return done, nil
}

// ActivationLevel returns the fee and investment cap of an activation tier.
func (c *ContractClient) ActivationLevel(ctx context.Context, level uint8) (*LevelInfo, error) {
	if level > MaxActivationLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	out, err := c.call(ctx, methodActivationLevel, level)
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrInvalidResponse, methodActivationLevel, len(out))
	}
	fee, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s fee is %T", ErrInvalidResponse, methodActivationLevel, out[0])
	}
	maxInvestment, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s max investment is %T", ErrInvalidResponse, methodActivationLevel, out[1])
	}
	return &LevelInfo{Level: level, Fee: fee, MaxInvestment: maxInvestment}, nil
}

// ChainID returns the chain id reported by the provider.
func (c *ContractClient) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_chainId: %w", ErrConnectionFailed, err)
	}
	return id, nil
}

// CheckChain reports whether the provider is on the configured chain.
// It always reports true when no chain id was configured.
func (c *ContractClient) CheckChain(ctx context.Context) (bool, error) {
	if c.chainID == 0 {
		return true, nil
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		return false, err
	}
	return id.IsUint64() && id.Uint64() == c.chainID, nil
}

func (c *ContractClient) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		if errors.Is(err, bind.ErrNoCode) {
			return nil, fmt.Errorf("%w: %s", ErrNoContract, c.address.Hex())
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no values", ErrInvalidResponse, method)
	}
	return out, nil
}

// NormalizeAddress validates a hex address and returns its EIP-55 checksum form.
func NormalizeAddress(address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func parseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}
