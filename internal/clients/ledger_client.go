package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/config"
)

// LedgerClient talks to the custodial ledger service. Transfers return the
// ledger block index that recorded them; the ledger's own rejection reasons
// are surfaced verbatim to the caller.
type LedgerClient struct {
	baseURL    string
	httpClient *http.Client
}

type transferRequest struct {
	LedgerID  string `json:"ledger_id"`
	ToAccount string `json:"to_account"`
	Amount    string `json:"amount"`
}

type transferFromRequest struct {
	LedgerID    string `json:"ledger_id"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      string `json:"amount"`
}

type transferResponse struct {
	Success    bool   `json:"success"`
	BlockIndex string `json:"block_index,omitempty"`
	Error      string `json:"error,omitempty"`
}

type balanceRequest struct {
	LedgerID string `json:"ledger_id"`
	Account  string `json:"account"`
}

type balanceResponse struct {
	Success bool   `json:"success"`
	Balance string `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewLedgerClient creates a custodial ledger client.
func NewLedgerClient(cfg config.LedgerConfig) *LedgerClient {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &LedgerClient{
		baseURL:    cfg.ServiceURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transfer moves amount from the bridge account to the given account.
func (c *LedgerClient) Transfer(ctx context.Context, ledgerID, toAccount string, amount *big.Int) (string, error) {
	req := transferRequest{LedgerID: ledgerID, ToAccount: toAccount, Amount: amount.String()}
	return c.doTransfer(ctx, "/api/v1/transfer", req)
}

// TransferFrom moves amount from one account to another under a previously
// granted allowance. The ledger rejects it with its own error if the
// allowance does not cover the amount.
func (c *LedgerClient) TransferFrom(ctx context.Context, ledgerID, fromAccount, toAccount string, amount *big.Int) (string, error) {
	req := transferFromRequest{LedgerID: ledgerID, FromAccount: fromAccount, ToAccount: toAccount, Amount: amount.String()}
	return c.doTransfer(ctx, "/api/v1/transfer-from", req)
}

// BalanceOf returns the ledger balance of an account.
func (c *LedgerClient) BalanceOf(ctx context.Context, ledgerID, account string) (*big.Int, error) {
	response, err := c.makeRequest(ctx, "/api/v1/balance-of", balanceRequest{LedgerID: ledgerID, Account: account})
	if err != nil {
		return nil, fmt.Errorf("%w: balance_of: %v", bridgeerr.ErrLedger, err)
	}

	var parsed balanceResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse balance response: %v", bridgeerr.ErrLedger, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", bridgeerr.ErrLedger, parsed.Error)
	}

	balance, ok := new(big.Int).SetString(parsed.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid balance %q", bridgeerr.ErrLedger, parsed.Balance)
	}
	return balance, nil
}

func (c *LedgerClient) doTransfer(ctx context.Context, path string, req interface{}) (string, error) {
	response, err := c.makeRequest(ctx, path, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", bridgeerr.ErrLedger, err)
	}

	var parsed transferResponse
	if err := json.Unmarshal(response, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse transfer response: %v", bridgeerr.ErrLedger, err)
	}
	if !parsed.Success {
		return "", fmt.Errorf("%w: %s", bridgeerr.ErrLedger, parsed.Error)
	}
	return parsed.BlockIndex, nil
}

func (c *LedgerClient) makeRequest(ctx context.Context, path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bridge-backend/1.0")

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
