package flow

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

// Full-length stand-ins for the wallets 0xABC, 0xDEF and 0x111.
const (
	addrABC = "0xabc0000000000000000000000000000000000abc"
	addrDEF = "0xdef0000000000000000000000000000000000def"
	addr111 = "0x1110000000000000000000000000000000000111"
)

func norm(t *testing.T, address string) string {
	t.Helper()
	a, err := ledger.NormalizeAddress(address)
	require.NoError(t, err)
	return a
}

type facts struct {
	id        uint64
	activated bool
	level     uint8
	profile   bool
}

// fakeLedger serves facts per wallet and counts every read. Errors queued
// with failNext are returned by successive RegistrationID calls. A wallet
// with a gate blocks its RegistrationID until the gate is released,
// regardless of the context.
type fakeLedger struct {
	mu      sync.Mutex
	facts   map[string]facts
	reads   map[string]int
	errs    []error
	gates   map[string]chan struct{}
	started chan string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		facts:   make(map[string]facts),
		reads:   make(map[string]int),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *fakeLedger) set(address string, fc facts) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.facts[strings.ToLower(address)] = fc
}

func (f *fakeLedger) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakeLedger) gate(address string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[strings.ToLower(address)] = ch
	return ch
}

func (f *fakeLedger) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[method]
}

func (f *fakeLedger) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.reads {
		n += c
	}
	return n
}

func (f *fakeLedger) lookup(method, address string) facts {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[method]++
	return f.facts[strings.ToLower(address)]
}

func (f *fakeLedger) mock() *ledger.MockLedger {
	return &ledger.MockLedger{
		RegistrationIDFn: func(ctx context.Context, address string) (uint64, error) {
			f.mu.Lock()
			var err error
			if len(f.errs) > 0 {
				err, f.errs = f.errs[0], f.errs[1:]
			}
			gate := f.gates[strings.ToLower(address)]
			f.mu.Unlock()

			if gate != nil {
				f.started <- strings.ToLower(address)
				<-gate
			}
			fc := f.lookup("registration", address)
			if err != nil {
				return 0, err
			}
			return fc.id, nil
		},
		ActivationStatusFn: func(ctx context.Context, address string) (*ledger.Activation, error) {
			fc := f.lookup("activation", address)
			return &ledger.Activation{Activated: fc.activated, Level: fc.level}, nil
		},
		ProfileCompleteFn: func(ctx context.Context, address string) (bool, error) {
			return f.lookup("profile", address).profile, nil
		},
		ActivationLevelFn: func(ctx context.Context, level uint8) (*ledger.LevelInfo, error) {
			return &ledger.LevelInfo{Level: level, Fee: big.NewInt(0), MaxInvestment: big.NewInt(0)}, nil
		},
		ChainIDFn: func(ctx context.Context) (*big.Int, error) { return big.NewInt(56), nil },
	}
}

// sleepRecorder replaces the backoff wait and remembers every requested delay.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func connected(address string) Input {
	return Input{Address: address, Connected: true, CorrectNetwork: true}
}
