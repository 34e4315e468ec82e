package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLedger() *MockLedger {
	return &MockLedger{
		RegistrationIDFn: func(ctx context.Context, address string) (uint64, error) { return 9, nil },
		ActivationStatusFn: func(ctx context.Context, address string) (*Activation, error) {
			return &Activation{Activated: true, Level: 2}, nil
		},
		ProfileCompleteFn: func(ctx context.Context, address string) (bool, error) { return true, nil },
		ActivationLevelFn: func(ctx context.Context, level uint8) (*LevelInfo, error) {
			return &LevelInfo{Level: level, Fee: big.NewInt(1), MaxInvestment: big.NewInt(2)}, nil
		},
		ChainIDFn: func(ctx context.Context) (*big.Int, error) { return big.NewInt(56), nil },
	}
}

func TestRateLimitedPassesThrough(t *testing.T) {
	l := NewRateLimited(stubLedger(), 1000, 10)
	ctx := context.Background()

	id, err := l.RegistrationID(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)

	act, err := l.ActivationStatus(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), act.Level)

	done, err := l.ProfileComplete(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, done)

	info, err := l.ActivationLevel(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), info.Level)

	chain, err := l.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(56), chain.Int64())
}

func TestRateLimitedWaitHonoursContext(t *testing.T) {
	// One token per hour: the first read drains the burst, the second must wait.
	l := NewRateLimited(stubLedger(), 1.0/3600, 1)

	_, err := l.RegistrationID(context.Background(), testUser)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.RegistrationID(ctx, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.False(t, IsFatal(err))
}

func TestRateLimitedMinimumBurst(t *testing.T) {
	l := NewRateLimited(stubLedger(), 10, 0)
	assert.Equal(t, 1, l.limiter.Burst())
}
