package ledger

import (
	"context"
	"math/big"
)

// Ledger is the read-only view of the deployed Speed Track contract that the
// onboarding flow depends on. Every method may fail with a transient provider
// error; implementations never write to the chain.
type Ledger interface {
	// RegistrationID returns the identity the contract assigned to address on
	// sign-up. Zero means the address is not registered.
	RegistrationID(ctx context.Context, address string) (uint64, error)

	// ActivationStatus reports whether address has purchased an activation
	// tier, and which one.
	ActivationStatus(ctx context.Context, address string) (*Activation, error)

	// ProfileComplete reports whether address has filled in the on-chain
	// profile fields.
	ProfileComplete(ctx context.Context, address string) (bool, error)

	// ActivationLevel returns the fee and investment cap the contract defines
	// for an activation tier.
	ActivationLevel(ctx context.Context, level uint8) (*LevelInfo, error)

	// ChainID returns the chain id of the connected provider.
	ChainID(ctx context.Context) (*big.Int, error)
}

// MaxActivationLevel is the highest activation tier the contract defines.
const MaxActivationLevel uint8 = 4

// Activation is the activation fact of a user record.
type Activation struct {
	Activated bool  `json:"activated"`
	Level     uint8 `json:"level"`
}

// LevelInfo is the metadata attached to an activation tier. Amounts are in wei.
type LevelInfo struct {
	Level         uint8    `json:"level"`
	Fee           *big.Int `json:"fee"`
	MaxInvestment *big.Int `json:"max_investment"`
}
