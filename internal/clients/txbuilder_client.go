package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/httpcall"
)

// TxDigestRequest is the build request sent to the transaction builder.
type TxDigestRequest struct {
	PublicKey string `json:"public_key"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// TxDigestResponse is the builder's reply: the unsigned transaction bytes and
// the digest the builder computed over them.
type TxDigestResponse struct {
	Digest  string `json:"digest"`
	TxBytes string `json:"tx_bytes"`
}

// TxBuilderClient requests unsigned transactions from the off-host builder
// service. The builder turns (public key, recipient, amount) into transaction
// bytes spendable from the address derived from that key.
type TxBuilderClient struct {
	httpClient *http.Client
	estimate   uint64
	// urlFn and hostFn resolve the endpoint and Host header from the config
	// store at call time.
	urlFn  func(ctx context.Context) (string, error)
	hostFn func(ctx context.Context) (string, error)
}

// NewTxBuilderClient creates a transaction builder client.
func NewTxBuilderClient(urlFn, hostFn func(ctx context.Context) (string, error), responseEstimate uint64, timeout time.Duration) *TxBuilderClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TxBuilderClient{
		httpClient: &http.Client{Timeout: timeout},
		urlFn:      urlFn,
		hostFn:     hostFn,
		estimate:   responseEstimate,
	}
}

// BuildTransfer requests an unsigned transfer transaction.
func (c *TxBuilderClient) BuildTransfer(ctx context.Context, publicKeyB64, recipient, amount string) (*TxDigestResponse, error) {
	url, err := c.urlFn(ctx)
	if err != nil {
		return nil, err
	}
	host, err := c.hostFn(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(TxDigestRequest{
		PublicKey: publicKeyB64,
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	estimate, err := httpcall.NewResponseSizeEstimate(c.estimate)
	if err != nil {
		return nil, err
	}

	clean, err := httpcall.Do(ctx, c.httpClient, httpcall.Request{
		URL:    url,
		Method: http.MethodPost,
		Headers: []httpcall.Header{
			{Name: "Host", Value: host},
			{Name: "Content-Type", Value: "application/json"},
		},
		Body:     body,
		Target:   "tx_builder",
		Estimate: estimate,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: tx builder: %v", bridgeerr.ErrTransport, err)
	}

	var parsed TxDigestResponse
	if err := json.Unmarshal(clean.Body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: tx builder: %v", bridgeerr.ErrMalformedResponse, err)
	}
	if parsed.TxBytes == "" || parsed.Digest == "" {
		return nil, fmt.Errorf("%w: tx builder returned empty digest or tx_bytes", bridgeerr.ErrMalformedResponse)
	}
	return &parsed, nil
}
