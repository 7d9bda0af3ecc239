package httpcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"bridge-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Request describes one metered outbound call.
type Request struct {
	URL     string
	Method  string
	Headers []Header
	Body    []byte
	// Target labels the call in metrics (e.g. "sui_rpc", "tx_builder").
	Target string
	// Estimate bounds the response body we are willing to accept.
	Estimate ResponseSizeEstimate
}

// Do executes a metered outbound call. The cost budget is computed from the
// declared effective size immediately before the call — never cached — and the
// body read is capped at that size. The raw response is reduced through
// CleanupResponse before it is returned, so callers only ever see the
// deterministic projection.
func Do(ctx context.Context, client *http.Client, req Request) (CleanResponse, error) {
	effective := req.Estimate.Effective()
	cost := RequestCost(effective)
	if req.Target != "" {
		metrics.OutboundCallBudget.WithLabelValues(req.Target).Set(float64(cost))
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return CleanResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Name, h.Value)
	}
	httpReq.Header.Set("X-Max-Response-Bytes", strconv.FormatUint(effective, 10))
	httpReq.Header.Set("X-Request-Budget", strconv.FormatUint(cost, 10))

	logrus.WithFields(logrus.Fields{
		"url":            req.URL,
		"effective_size": effective,
		"budget":         cost,
	}).Debug("outbound call")

	resp, err := client.Do(httpReq)
	if err != nil {
		return CleanResponse{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte beyond the declared size so oversize responses are
	// detected instead of silently truncated.
	limited := io.LimitReader(resp.Body, int64(effective)+1)
	responseBody, err := io.ReadAll(limited)
	if err != nil {
		return CleanResponse{}, fmt.Errorf("failed to read response: %w", err)
	}
	if uint64(len(responseBody)) > effective {
		return CleanResponse{}, fmt.Errorf("response exceeded declared size of %d bytes", effective)
	}

	raw := RawResponse{Status: resp.StatusCode, Body: responseBody}
	for name, values := range resp.Header {
		for _, value := range values {
			raw.Headers = append(raw.Headers, Header{Name: name, Value: value})
		}
	}

	clean := CleanupResponse(raw)
	if clean.Diagnostic != "" {
		logrus.WithFields(logrus.Fields{
			"url":    req.URL,
			"status": clean.Status,
		}).Warn(clean.Diagnostic)
	}
	return clean, nil
}
