package httpcall

import (
	"fmt"
)

// Header is a single response header pair.
type Header struct {
	Name  string
	Value string
}

// RawResponse is the transport-level view of an outbound call's response.
type RawResponse struct {
	Status  int
	Headers []Header
	Body    []byte
}

// CleanResponse is the canonical projection of a RawResponse. When the same
// outbound call is issued by redundant executions their results must agree
// byte for byte, so everything non-deterministic (server headers, timestamps,
// ordering) is stripped. Diagnostic carries context for non-success statuses.
type CleanResponse struct {
	Status     int
	Headers    []Header
	Body       []byte
	Diagnostic string
}

// securityHeaders is the fixed header set every sanitized response carries.
func securityHeaders() []Header {
	return []Header{
		{Name: "Content-Security-Policy", Value: "default-src 'self'"},
		{Name: "Referrer-Policy", Value: "strict-origin"},
		{Name: "Permissions-Policy", Value: "geolocation=(self)"},
		{Name: "Strict-Transport-Security", Value: "max-age=63072000"},
		{Name: "X-Frame-Options", Value: "DENY"},
		{Name: "X-Content-Type-Options", Value: "nosniff"},
	}
}

// CleanupResponse reduces a raw response to its deterministic projection:
// status and body survive, original headers are replaced with the fixed
// security set. Pure function: same input always yields the same output.
func CleanupResponse(raw RawResponse) CleanResponse {
	res := CleanResponse{
		Status:  raw.Status,
		Headers: securityHeaders(),
		Body:    raw.Body,
	}

	if raw.Status != 200 {
		res.Diagnostic = fmt.Sprintf("received error: status=%d, body=%s", raw.Status, string(raw.Body))
	}
	return res
}
