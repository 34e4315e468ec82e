package ledger

import "errors"

var (
	// ErrConnectionFailed indicates the provider could not be reached or the
	// call did not complete.
	ErrConnectionFailed = errors.New("ledger: connection failed")

	// ErrInvalidResponse indicates the contract returned a malformed or unexpected value.
	ErrInvalidResponse = errors.New("ledger: invalid response")

	// ErrInvalidAddress indicates a wallet or contract address is not a 20-byte hex address.
	ErrInvalidAddress = errors.New("ledger: invalid address")

	// ErrNoContract indicates there is no contract code at the configured address.
	ErrNoContract = errors.New("ledger: no contract code at address")

	// ErrWrongChain indicates the provider is connected to a different chain than configured.
	ErrWrongChain = errors.New("ledger: wrong chain")

	// ErrInvalidLevel indicates an activation level outside 0..MaxActivationLevel.
	ErrInvalidLevel = errors.New("ledger: invalid activation level")
)

// IsFatal reports whether err can never succeed on retry: the input or the
// deployment is wrong, not the provider.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrNoContract) ||
		errors.Is(err, ErrWrongChain) ||
		errors.Is(err, ErrInvalidLevel)
}
