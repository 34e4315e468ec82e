package ledger

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/time/rate"
)

// RateLimited throttles every read of the wrapped Ledger. It is meant for
// public RPC endpoints that reject bursts from polling clients.
type RateLimited struct {
	next    Ledger
	limiter *rate.Limiter
}

var _ Ledger = (*RateLimited)(nil)

// NewRateLimited wraps next so that at most perSecond reads start per second,
// with bursts of up to burst reads.
func NewRateLimited(next Ledger, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %w", ErrConnectionFailed, err)
	}
	return nil
}

func (r *RateLimited) RegistrationID(ctx context.Context, address string) (uint64, error) {
	if err := r.wait(ctx); err != nil {
		return 0, err
	}
	return r.next.RegistrationID(ctx, address)
}

func (r *RateLimited) ActivationStatus(ctx context.Context, address string) (*Activation, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ActivationStatus(ctx, address)
}

func (r *RateLimited) ProfileComplete(ctx context.Context, address string) (bool, error) {
	if err := r.wait(ctx); err != nil {
		return false, err
	}
	return r.next.ProfileComplete(ctx, address)
}

func (r *RateLimited) ActivationLevel(ctx context.Context, level uint8) (*LevelInfo, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ActivationLevel(ctx, level)
}

func (r *RateLimited) ChainID(ctx context.Context) (*big.Int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.ChainID(ctx)
}
