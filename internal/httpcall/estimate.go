package httpcall

import (
	"fmt"
)

// headerSizeLimit is our approximation of the expected header size. The HTTP
// standard doesn't define any limit, and many implementations cap headers at
// 8 KiB. We chose a lower limit because headers observed on most providers fit
// in it, and a spike is absorbed by the payload size adjustment.
const headerSizeLimit uint64 = 2 * 1024

// httpMaxSize is the hard cap the outbound transport places on a declared
// response size.
const httpMaxSize uint64 = 2_000_000

// MaxPayloadSize is the largest response body a call may declare.
const MaxPayloadSize = httpMaxSize - headerSizeLimit

// ResponseSizeEstimate describes the expected (90th percentile) number of
// bytes in an HTTP response body. It is computed per call and never persisted.
type ResponseSizeEstimate uint64

// NewResponseSizeEstimate validates the expected byte count.
func NewResponseSizeEstimate(numBytes uint64) (ResponseSizeEstimate, error) {
	if numBytes == 0 {
		return 0, fmt.Errorf("response size estimate must be positive")
	}
	if numBytes > MaxPayloadSize {
		return 0, fmt.Errorf("response size estimate %d exceeds max payload size %d", numBytes, MaxPayloadSize)
	}
	return ResponseSizeEstimate(numBytes), nil
}

// Get returns the expected number of body bytes.
func (e ResponseSizeEstimate) Get() uint64 {
	return uint64(e)
}

// Adjust returns a higher estimate for the payload size, for re-estimating
// when a prior guess under-sized the response.
func (e ResponseSizeEstimate) Adjust() ResponseSizeEstimate {
	n := uint64(e)
	if n < 1024 {
		n = 1024
	}
	n *= 2
	if n > MaxPayloadSize {
		n = MaxPayloadSize
	}
	return ResponseSizeEstimate(n)
}

// Effective returns the size actually declared to the transport: the body
// estimate plus the header allowance.
func (e ResponseSizeEstimate) Effective() uint64 {
	return uint64(e) + headerSizeLimit
}

func (e ResponseSizeEstimate) String() string {
	return fmt.Sprintf("%d", uint64(e))
}

// Cost parameters for a metered outbound call. The price of a call grows with
// the declared maximum response size and scales with the hosting network size.
const (
	baseCost        uint64 = 400_000_000
	perByteCost     uint64 = 100_000
	baseNetworkSize uint64 = 13
	networkSize     uint64 = 34
)

// RequestCost returns the resource budget to attach to a call that declares
// the given effective response size. It must be recomputed before every
// outbound request; the result is only valid for that target size.
func RequestCost(effectiveSize uint64) uint64 {
	base := baseCost + perByteCost*(2*effectiveSize)
	return base * networkSize / baseNetworkSize
}
