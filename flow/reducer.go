package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

const (
	// DefaultMaxAttempts is the total number of evaluation attempts, the first
	// one included.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the backoff unit; the wait after attempt n is n units.
	DefaultRetryDelay = time.Second
	// DefaultReadTimeout bounds every single ledger read.
	DefaultReadTimeout = 10 * time.Second
)

// RetryPolicy bounds how often a failed evaluation is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns three attempts with 1s and 2s pauses between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultRetryDelay}
}

// Delay returns the pause after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BaseDelay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Input is what the Reducer knows about the session: the wallet, whether it
// is connected, and whether the provider is on the pinned chain.
type Input struct {
	Address        string
	Connected      bool
	CorrectNetwork bool
}

func (in Input) usable() bool {
	return in.Connected && in.CorrectNetwork && in.Address != ""
}

// Result is the outcome of one evaluation. State is always fully populated;
// Err carries the last ledger error for logging and never needs handling.
type Result struct {
	State    State
	Outcome  Outcome
	Attempts int
	Cached   bool
	Err      error
}

// Reducer turns ledger facts into a State.
//
// Reads of the same wallet are ordered by a per-key ticket: only the most
// recently started read may write the cache, so a slow read that finishes
// after a newer one is returned to its caller but never cached.
type Reducer struct {
	ledger  ledger.Ledger
	cache   Cache
	policy  RetryPolicy
	timeout time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	tickets map[string]uint64
	issued  uint64
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option { return func(r *Reducer) { r.policy = p } }

// WithReadTimeout bounds each ledger read. Zero disables the bound.
func WithReadTimeout(d time.Duration) Option { return func(r *Reducer) { r.timeout = d } }

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSleeper replaces the backoff wait, mainly so tests do not sleep.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Reducer) { r.sleep = fn }
}

// NewReducer creates a Reducer reading from l and memoizing into cache.
// A nil cache gets a fresh MemoryCache.
func NewReducer(l ledger.Ledger, cache Cache, opts ...Option) *Reducer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	r := &Reducer{
		ledger:  l,
		cache:   cache,
		policy:  DefaultRetryPolicy(),
		timeout: DefaultReadTimeout,
		logger:  zap.NewNop(),
		sleep:   sleepContext,
		tickets: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the cache the Reducer memoizes into.
func (r *Reducer) Cache() Cache { return r.cache }

// Evaluate derives the state for in. A wallet already in the cache is
// answered from the cache without touching the ledger.
func (r *Reducer) Evaluate(ctx context.Context, in Input) Result {
	return r.evaluate(ctx, in, false, r.cache.Generation())
}

// Refresh derives the state for in from the ledger, ignoring and then
// replacing any cached entry.
func (r *Reducer) Refresh(ctx context.Context, in Input) Result {
	return r.evaluate(ctx, in, true, r.cache.Generation())
}

func (r *Reducer) evaluate(ctx context.Context, in Input, refresh bool, generation uint64) Result {
	if !in.usable() {
		return Result{State: Disconnected(), Outcome: OutcomeSuccess}
	}

	address, err := ledger.NormalizeAddress(in.Address)
	if err != nil {
		r.logger.Warn("rejecting wallet address", zap.String("address", in.Address), zap.Error(err))
		return Result{State: r.preserved(CacheKey(in.Address)), Outcome: OutcomeFatal, Err: err}
	}
	key := CacheKey(address)

	if !refresh {
		if s, ok := r.cache.Load(key); ok {
			return Result{State: s, Outcome: OutcomeSuccess, Cached: true}
		}
	}

	ticket := r.issue(key)
	defer r.release(key, ticket)

	maxAttempts := r.policy.attempts()
	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		s, err := r.read(ctx, address)
		if err == nil {
			r.remember(key, s, generation, ticket)
			return Result{State: s, Outcome: OutcomeSuccess, Attempts: attempt}
		}
		lastErr = err
		if classify(err) == OutcomeFatal || attempt == maxAttempts {
			break
		}
		delay := r.policy.Delay(attempt)
		r.logger.Warn("ledger read failed, retrying",
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			break
		}
	}

	outcome := classify(lastErr)
	s := r.preserved(key)
	r.logger.Error("ledger unavailable, keeping last known state",
		zap.String("address", address),
		zap.Int("attempts", attempt),
		zap.Stringer("outcome", outcome),
		zap.Stringer("step", s.CurrentStep),
		zap.Error(lastErr))
	return Result{State: s, Outcome: outcome, Attempts: attempt, Err: lastErr}
}

// preserved returns the last known-good state for key, or Disconnected when
// the wallet has never been read successfully.
func (r *Reducer) preserved(key string) State {
	if s, ok := r.cache.Load(key); ok {
		return s
	}
	return Disconnected()
}

// issue hands out the newest ticket for key.
func (r *Reducer) issue(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	r.tickets[key] = r.issued
	return r.issued
}

// release forgets key once its newest read is done. Older reads still in
// flight then find no ticket and stay out of the cache.
func (r *Reducer) release(key string, ticket uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickets[key] == ticket {
		delete(r.tickets, key)
	}
}

func (r *Reducer) remember(key string, s State, generation, ticket uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tickets[key] != ticket {
		r.logger.Debug("dropping result overtaken by a newer read", zap.String("address", s.Address))
		return
	}
	err := r.cache.Store(key, s, generation)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleGeneration):
		r.logger.Debug("dropping superseded result", zap.String("address", s.Address), zap.Uint64("generation", generation))
	default:
		r.logger.Warn("caching flow state failed", zap.String("address", s.Address), zap.Error(err))
	}
}

// read queries the ledger in stage order and stops at the first unmet stage.
func (r *Reducer) read(ctx context.Context, address string) (State, error) {
	id, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (uint64, error) {
		return r.ledger.RegistrationID(ctx, address)
	})
	if err != nil {
		return State{}, fmt.Errorf("flow: registration id: %w", err)
	}
	if id == 0 {
		return newState(address, StepRegister, 0, 0), nil
	}

	act, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (*ledger.Activation, error) {
		return r.ledger.ActivationStatus(ctx, address)
	})
	if err != nil {
		return State{}, fmt.Errorf("flow: activation status: %w", err)
	}
	if act == nil {
		return State{}, fmt.Errorf("flow: activation status: %w: empty result", ledger.ErrInvalidResponse)
	}
	if !act.Activated {
		return newState(address, StepActivate, id, act.Level), nil
	}

	done, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (bool, error) {
		return r.ledger.ProfileComplete(ctx, address)
	})
	if err != nil {
		return State{}, fmt.Errorf("flow: profile completion: %w", err)
	}
	if !done {
		return newState(address, StepProfile, id, act.Level), nil
	}
	return newState(address, StepComplete, id, act.Level), nil
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
