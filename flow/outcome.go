package flow

import (
	"fmt"

	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

// Outcome classifies how an evaluation ended.
type Outcome uint8

const (
	// OutcomeSuccess means the state reflects a fresh (or cached) ledger read.
	OutcomeSuccess Outcome = iota
	// OutcomeTransient means every attempt failed with a retryable error and
	// the state was preserved from the last known-good value.
	OutcomeTransient
	// OutcomeFatal means the read can never succeed (malformed address, no
	// contract, wrong chain); retries were skipped.
	OutcomeFatal
)

var outcomeNames = [...]string{"success", "transient_error", "fatal_error"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case ledger.IsFatal(err):
		return OutcomeFatal
	default:
		return OutcomeTransient
	}
}
