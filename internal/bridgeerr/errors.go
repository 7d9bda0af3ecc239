// Package bridgeerr defines the error taxonomy shared by the relay's clients
// and services. Every stage failure is reported upward immediately as one of
// these; nothing in the core retries on its own.
package bridgeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing: a required config store key is absent. Fatal to the
	// operation that needed it.
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrTransport: an outbound network call failed. The operation aborts at
	// that stage; no retry.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse: an external payload could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrLedger: the custodial ledger rejected a transfer or allowance.
	ErrLedger = errors.New("ledger error")

	// ErrInsufficientBalance: the bridge cannot cover a mint. Skip now, retry
	// on a later cycle.
	ErrInsufficientBalance = errors.New("insufficient bridge balance")

	// ErrSigning: the threshold-signing service failed.
	ErrSigning = errors.New("signing error")

	// ErrExecutionRejected: the destination chain rejected the submission or
	// returned an unparsable body.
	ErrExecutionRejected = errors.New("execution rejected")
)

// ConfigMissing wraps ErrConfigMissing with the absent key.
func ConfigMissing(key string) error {
	return fmt.Errorf("%w: %s", ErrConfigMissing, key)
}
