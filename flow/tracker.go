package flow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often Run re-reads the ledger.
const DefaultPollInterval = 30 * time.Second

// Tracker follows one interactive session. Account changes, network changes,
// poll ticks and manual refreshes each start an evaluation; starting one
// cancels the evaluation in flight, and a result whose generation has been
// superseded is dropped instead of published.
type Tracker struct {
	reducer  *Reducer
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	input   Input
	state   State
	loading bool
	cancel  context.CancelFunc
	subs    map[int]chan State
	nextSub int
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval sets the Run polling period.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTrackerLogger sets the logger; nil keeps the no-op logger.
func WithTrackerLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates a disconnected Tracker driven by r.
func NewTracker(r *Reducer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		reducer:  r,
		logger:   zap.NewNop(),
		interval: DefaultPollInterval,
		state:    Disconnected(),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the most recently published state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsLoading reports whether an evaluation is in flight.
func (t *Tracker) IsLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// SetAccount switches the session to address. Switching to a different
// wallet drops the previous wallet's cache entry. An empty address or
// connected=false disconnects immediately.
func (t *Tracker) SetAccount(ctx context.Context, address string, connected bool) State {
	t.mu.Lock()
	prev := t.input.Address
	t.input.Address = address
	t.input.Connected = connected && address != ""
	t.mu.Unlock()

	drop := ""
	if prev != "" && CacheKey(prev) != CacheKey(address) {
		drop = prev
	}
	return t.trigger(ctx, false, drop)
}

// SetNetwork records whether the provider is on the pinned chain.
func (t *Tracker) SetNetwork(ctx context.Context, correct bool) State {
	t.mu.Lock()
	t.input.CorrectNetwork = correct
	t.mu.Unlock()
	return t.trigger(ctx, false, "")
}

// Refresh re-reads the ledger for the current wallet, bypassing the cache.
func (t *Tracker) Refresh(ctx context.Context) State {
	return t.trigger(ctx, true, "")
}

// Run evaluates once, then refreshes every poll interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.trigger(ctx, false, "")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.trigger(ctx, true, "")
		}
	}
}

// Subscribe returns a channel that receives every state change. The channel
// holds only the latest state; a slow reader skips intermediate ones.
// The returned function unsubscribes and closes the channel.
func (t *Tracker) Subscribe() (<-chan State, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	ch := make(chan State, 1)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// trigger starts an evaluation of the current input. drop names a wallet
// whose cache entry is removed once the generation has moved, so a read of
// it still in flight can no longer store it back.
func (t *Tracker) trigger(ctx context.Context, refresh bool, drop string) State {
	t.mu.Lock()
	in := t.input
	generation := t.reducer.cache.Advance()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if drop != "" {
		if err := t.reducer.cache.Delete(CacheKey(drop)); err != nil {
			t.logger.Warn("dropping cached state failed", zap.String("address", drop), zap.Error(err))
		}
	}
	if !in.usable() {
		t.loading = false
		t.publishLocked(Disconnected())
		t.mu.Unlock()
		return Disconnected()
	}
	evalCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.loading = true
	t.mu.Unlock()

	res := t.reducer.evaluate(evalCtx, in, refresh, generation)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reducer.cache.Generation() != generation {
		t.logger.Debug("discarding superseded evaluation",
			zap.String("address", in.Address),
			zap.Uint64("generation", generation))
		return t.state
	}
	t.cancel = nil
	t.loading = false
	t.publishLocked(res.State)
	return res.State
}

// publishLocked records s and hands it to subscribers if it differs from the
// current state.
func (t *Tracker) publishLocked(s State) {
	if s == t.state {
		return
	}
	t.logger.Info("flow state changed",
		zap.String("address", s.Address),
		zap.Stringer("from", t.state.CurrentStep),
		zap.Stringer("to", s.CurrentStep))
	t.state = s
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
