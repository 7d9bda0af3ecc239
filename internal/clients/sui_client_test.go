package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bridge-backend/internal/bridgeerr"
)

func staticURL(url string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) { return url, nil }
}

func TestQueryEventsRequestShape(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"data":[],"nextCursor":{"txDigest":"","eventSeq":""},"hasNextPage":false}}`))
	}))
	defer server.Close()

	client := NewSuiRPCClient(staticURL(server.URL), 2048, 10*time.Second)

	// Without a cursor the cursor param is null.
	if _, err := client.QueryEvents(context.Background(), "0xpkg", "bridge", "", 18000); err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if gotBody["method"] != "suix_queryEvents" {
		t.Fatalf("method = %v", gotBody["method"])
	}
	params := gotBody["params"].([]interface{})
	if len(params) != 4 {
		t.Fatalf("params length = %d, want 4", len(params))
	}
	filter := params[0].(map[string]interface{})["MoveModule"].(map[string]interface{})
	if filter["package"] != "0xpkg" || filter["module"] != "bridge" {
		t.Fatalf("filter = %v", filter)
	}
	if params[1] != nil {
		t.Fatalf("cursor param = %v, want null", params[1])
	}
	if params[2].(float64) != 18000 {
		t.Fatalf("page size = %v, want 18000", params[2])
	}
	if params[3] != false {
		t.Fatalf("descending flag = %v, want false", params[3])
	}

	// With a cursor the param carries the digest with event sequence zero.
	if _, err := client.QueryEvents(context.Background(), "0xpkg", "bridge", "digest-x", 2); err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	params = gotBody["params"].([]interface{})
	cursor := params[1].(map[string]interface{})
	if cursor["txDigest"] != "digest-x" || cursor["eventSeq"] != "0" {
		t.Fatalf("cursor param = %v", cursor)
	}
	if params[2].(float64) != 2 {
		t.Fatalf("page size = %v, want 2", params[2])
	}
}

func TestQueryEventsParsesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{
			"data":[{"id":{"txDigest":"d1","eventSeq":"0"},"sender":"0xabc",
				"parsedJson":{"from":"0xabc","minter_address":"0xm","principal_address":"alice","value":"42"}}],
			"nextCursor":{"txDigest":"d1","eventSeq":"0"},"hasNextPage":false}}`))
	}))
	defer server.Close()

	client := NewSuiRPCClient(staticURL(server.URL), 2048, 10*time.Second)
	page, err := client.QueryEvents(context.Background(), "0xpkg", "bridge", "", 18000)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(page.Data) != 1 {
		t.Fatalf("got %d events, want 1", len(page.Data))
	}
	event := page.Data[0]
	if event.ID.TxDigest != "d1" || event.ParsedJSON.PrincipalAddress != "alice" || event.ParsedJSON.Value != "42" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if page.NextCursor.TxDigest != "d1" {
		t.Fatalf("next cursor = %+v", page.NextCursor)
	}
}

func TestExecuteTransactionBlockRequestShape(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"digest":"ChainDigest","confirmedLocalExecution":true}}`))
	}))
	defer server.Close()

	client := NewSuiRPCClient(staticURL(server.URL), 2048, 10*time.Second)
	digest, err := client.ExecuteTransactionBlock(context.Background(), "dHhieXRlcw==", "ZW52ZWxvcGU=")
	if err != nil {
		t.Fatalf("ExecuteTransactionBlock failed: %v", err)
	}
	if digest != "ChainDigest" {
		t.Fatalf("digest = %q", digest)
	}

	if gotBody["method"] != "sui_executeTransactionBlock" {
		t.Fatalf("method = %v", gotBody["method"])
	}
	params := gotBody["params"].([]interface{})
	if len(params) != 4 {
		t.Fatalf("params length = %d, want 4", len(params))
	}
	if params[0] != "dHhieXRlcw==" {
		t.Fatalf("tx bytes param = %v", params[0])
	}
	sigs := params[1].([]interface{})
	if len(sigs) != 1 || sigs[0] != "ZW52ZWxvcGU=" {
		t.Fatalf("signatures param = %v", params[1])
	}
	if params[2] != nil || params[3] != nil {
		t.Fatalf("options params = %v %v, want null null", params[2], params[3])
	}
}

func TestExecuteTransactionBlockEmptyDigest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"digest":""}}`))
	}))
	defer server.Close()

	client := NewSuiRPCClient(staticURL(server.URL), 2048, 10*time.Second)
	_, err := client.ExecuteTransactionBlock(context.Background(), "tx", "sig")
	if !errors.Is(err, bridgeerr.ErrExecutionRejected) {
		t.Fatalf("error = %v, want ErrExecutionRejected", err)
	}
}

func TestQueryEventsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewSuiRPCClient(staticURL(server.URL), 2048, time.Second)
	_, err := client.QueryEvents(context.Background(), "0xpkg", "bridge", "", 18000)
	if !errors.Is(err, bridgeerr.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}
