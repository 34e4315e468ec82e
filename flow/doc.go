// Package flow derives the onboarding stage of a Speed Track wallet.
//
// A wallet moves through five ordered stages: connect, register, activate,
// profile and complete. The stage is never stored; the Reducer recomputes it
// from three ledger facts (registration id, activation status, profile
// completion), reading them in order and stopping at the first unmet one.
// Read failures are retried a bounded number of times and, once the budget
// is spent, the last known-good state for the address is kept instead of
// falling back to connect.
//
// The Tracker wraps a Reducer with the reactive inputs of an interactive
// session (account, network, polling and manual refresh) and discards the
// result of any evaluation that a newer trigger has superseded.
package flow
