package ledger

import (
	"context"
	"math/big"
)

// MockLedger is a test double for Ledger.
// All function fields must be set before the corresponding method is called.
type MockLedger struct {
	RegistrationIDFn   func(ctx context.Context, address string) (uint64, error)
	ActivationStatusFn func(ctx context.Context, address string) (*Activation, error)
	ProfileCompleteFn  func(ctx context.Context, address string) (bool, error)
	ActivationLevelFn  func(ctx context.Context, level uint8) (*LevelInfo, error)
	ChainIDFn          func(ctx context.Context) (*big.Int, error)
}

var _ Ledger = (*MockLedger)(nil)

func (m *MockLedger) RegistrationID(ctx context.Context, address string) (uint64, error) {
	return m.RegistrationIDFn(ctx, address)
}
func (m *MockLedger) ActivationStatus(ctx context.Context, address string) (*Activation, error) {
	return m.ActivationStatusFn(ctx, address)
}
func (m *MockLedger) ProfileComplete(ctx context.Context, address string) (bool, error) {
	return m.ProfileCompleteFn(ctx, address)
}
func (m *MockLedger) ActivationLevel(ctx context.Context, level uint8) (*LevelInfo, error) {
	return m.ActivationLevelFn(ctx, level)
}
func (m *MockLedger) ChainID(ctx context.Context) (*big.Int, error) {
	return m.ChainIDFn(ctx)
}
