package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/httpcall"

	"github.com/sirupsen/logrus"
)

// SuiEventID identifies one source-chain event.
type SuiEventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// SuiEventPayload is the parsed payload of a deposit event.
type SuiEventPayload struct {
	From             string `json:"from"`
	MinterAddress    string `json:"minter_address"`
	PrincipalAddress string `json:"principal_address"`
	Value            string `json:"value"`
}

// SuiEvent is one event returned by suix_queryEvents.
type SuiEvent struct {
	ID                SuiEventID      `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        SuiEventPayload `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs"`
}

// EventPage is one page of the paginated event query.
type EventPage struct {
	Data        []SuiEvent `json:"data"`
	NextCursor  SuiEventID `json:"nextCursor"`
	HasNextPage bool       `json:"hasNextPage"`
}

type queryEventsResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  EventPage `json:"result"`
	ID      int64     `json:"id"`
}

type executeTxBlockResponse struct {
	JSONRPC string `json:"jsonrpc"`
	Result  struct {
		Digest                  string `json:"digest"`
		ConfirmedLocalExecution bool   `json:"confirmedLocalExecution"`
	} `json:"result"`
	ID int64 `json:"id"`
}

// SuiRPCClient talks JSON-RPC to the source chain full node.
type SuiRPCClient struct {
	httpClient *http.Client
	// urlFn resolves the endpoint at call time, so a config change between
	// calls takes effect without restarting.
	urlFn    func(ctx context.Context) (string, error)
	estimate uint64
}

// NewSuiRPCClient creates a source-chain RPC client.
func NewSuiRPCClient(urlFn func(ctx context.Context) (string, error), responseEstimate uint64, timeout time.Duration) *SuiRPCClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SuiRPCClient{
		httpClient: &http.Client{Timeout: timeout},
		urlFn:      urlFn,
		estimate:   responseEstimate,
	}
}

// moveModuleFilter is the event query filter for a package/module pair.
type moveModuleFilter struct {
	MoveModule struct {
		Package string `json:"package"`
		Module  string `json:"module"`
	} `json:"MoveModule"`
}

// QueryEvents fetches one page of deposit events. With an empty cursor the
// most recent page is requested without a txDigest filter; otherwise the page
// starts after the cursor. Events come back with the batch's nextCursor.
func (c *SuiRPCClient) QueryEvents(ctx context.Context, packageID, moduleID, cursor string, pageSize int) (*EventPage, error) {
	var filter moveModuleFilter
	filter.MoveModule.Package = packageID
	filter.MoveModule.Module = moduleID

	var cursorParam interface{}
	if cursor != "" {
		cursorParam = SuiEventID{TxDigest: cursor, EventSeq: "0"}
	}

	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "suix_queryEvents",
		"params":  []interface{}{filter, cursorParam, pageSize, false},
	}

	clean, err := c.call(ctx, payload)
	if err != nil {
		return nil, err
	}

	var parsed queryEventsResponse
	if err := json.Unmarshal(clean.Body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: suix_queryEvents: %v", bridgeerr.ErrMalformedResponse, err)
	}
	return &parsed.Result, nil
}

// ExecuteTransactionBlock submits the signed envelope and original transaction
// bytes, returning the transaction digest reported by the chain.
func (c *SuiRPCClient) ExecuteTransactionBlock(ctx context.Context, txBytes, envelope string) (string, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sui_executeTransactionBlock",
		"params":  []interface{}{txBytes, []string{envelope}, nil, nil},
	}

	clean, err := c.call(ctx, payload)
	if err != nil {
		return "", err
	}
	if clean.Status != 200 {
		return "", fmt.Errorf("%w: status=%d", bridgeerr.ErrExecutionRejected, clean.Status)
	}

	var parsed executeTxBlockResponse
	if err := json.Unmarshal(clean.Body, &parsed); err != nil {
		return "", fmt.Errorf("%w: sui_executeTransactionBlock: %v", bridgeerr.ErrExecutionRejected, err)
	}
	if parsed.Result.Digest == "" {
		return "", fmt.Errorf("%w: empty digest in response", bridgeerr.ErrExecutionRejected)
	}

	logrus.WithFields(logrus.Fields{
		"digest":                    parsed.Result.Digest,
		"confirmed_local_execution": parsed.Result.ConfirmedLocalExecution,
	}).Info("transaction block executed")
	return parsed.Result.Digest, nil
}

func (c *SuiRPCClient) call(ctx context.Context, payload interface{}) (httpcall.CleanResponse, error) {
	url, err := c.urlFn(ctx)
	if err != nil {
		return httpcall.CleanResponse{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return httpcall.CleanResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	estimate, err := httpcall.NewResponseSizeEstimate(c.estimate)
	if err != nil {
		return httpcall.CleanResponse{}, err
	}

	clean, err := httpcall.Do(ctx, c.httpClient, httpcall.Request{
		URL:      url,
		Method:   http.MethodPost,
		Headers:  []httpcall.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:     body,
		Target:   "sui_rpc",
		Estimate: estimate,
	})
	if err != nil {
		return httpcall.CleanResponse{}, fmt.Errorf("%w: %v", bridgeerr.ErrTransport, err)
	}
	return clean, nil
}
