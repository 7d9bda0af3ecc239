package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/config"
)

// SignerClient is the client for the threshold-signing service. The service
// produces signatures over message hashes without ever exposing the private
// key material to this process.
type SignerClient struct {
	baseURL        string
	authToken      string
	keyName        string
	derivationPath []string
	httpClient     *http.Client
}

type publicKeyRequest struct {
	DerivationPath []string `json:"derivation_path"`
	KeyName        string   `json:"key_name"`
}

type publicKeyResponse struct {
	Success   bool   `json:"success"`
	PublicKey string `json:"public_key,omitempty"` // base64
	Error     string `json:"error,omitempty"`
}

type signRequest struct {
	MessageHash    string   `json:"message_hash"` // base64
	DerivationPath []string `json:"derivation_path"`
	KeyName        string   `json:"key_name"`
}

type signResponse struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature,omitempty"` // base64
	Error     string `json:"error,omitempty"`
}

// NewSignerClient creates a threshold signer client.
func NewSignerClient(cfg config.SignerConfig) *SignerClient {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &SignerClient{
		baseURL:        cfg.ServiceURL,
		authToken:      cfg.AuthToken,
		keyName:        cfg.KeyName,
		derivationPath: cfg.DerivationPath,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// PublicKey fetches the bridge public key for the configured derivation path.
// Callers cache it per operation at most, never persist it.
func (c *SignerClient) PublicKey(ctx context.Context) ([]byte, error) {
	req := publicKeyRequest{
		DerivationPath: c.derivationPath,
		KeyName:        c.keyName,
	}

	response, err := c.makeRequest(ctx, http.MethodPost, "/api/v1/public-key", req)
	if err != nil {
		return nil, fmt.Errorf("%w: public key request failed: %v", bridgeerr.ErrSigning, err)
	}

	var parsed publicKeyResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key response: %v", bridgeerr.ErrSigning, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", bridgeerr.ErrSigning, parsed.Error)
	}

	publicKey, err := base64.StdEncoding.DecodeString(parsed.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode public key: %v", bridgeerr.ErrSigning, err)
	}
	return publicKey, nil
}

// Sign requests a signature over the given message hash using the fixed
// key-derivation path.
func (c *SignerClient) Sign(ctx context.Context, messageHash []byte) ([]byte, error) {
	req := signRequest{
		MessageHash:    base64.StdEncoding.EncodeToString(messageHash),
		DerivationPath: c.derivationPath,
		KeyName:        c.keyName,
	}

	response, err := c.makeRequest(ctx, http.MethodPost, "/api/v1/sign", req)
	if err != nil {
		return nil, fmt.Errorf("%w: sign request failed: %v", bridgeerr.ErrSigning, err)
	}

	var parsed signResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse sign response: %v", bridgeerr.ErrSigning, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", bridgeerr.ErrSigning, parsed.Error)
	}

	signature, err := base64.StdEncoding.DecodeString(parsed.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode signature: %v", bridgeerr.ErrSigning, err)
	}
	return signature, nil
}

// makeRequest sends one HTTP request to the signer service.
func (c *SignerClient) makeRequest(ctx context.Context, method, path string, data interface{}) ([]byte, error) {
	url := c.baseURL + path

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bridge-backend/1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
		req.Header.Set("X-Service-Name", "bridge-backend")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http request failed: status=%d, body=%s", resp.StatusCode, string(responseBody))
	}

	return responseBody, nil
}
