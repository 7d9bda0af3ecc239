package services

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"testing"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/clients"
	"bridge-backend/internal/models"
)

// ---------------------------------------------------------------------------
// fakes shared by the service tests
// ---------------------------------------------------------------------------

type fakeConfigRepo struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{values: map[string]string{
		models.SuiPackageIDKey: "0xpkg",
		models.SuiModuleIDKey:  "bridge",
		models.LedgerIDKey:     "ledger-1",
		models.MinterTokenKey:  "bridge-minter",
		models.IsLocalKey:      "true",
	}}
}

func (f *fakeConfigRepo) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	value, found := f.values[key]
	return value, found, nil
}

func (f *fakeConfigRepo) Set(ctx context.Context, key, value string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return "", false, f.setErr
	}
	prev, had := f.values[key]
	f.values[key] = value
	return prev, had, nil
}

type fakeTxRepo struct {
	mu           sync.Mutex
	minted       []*models.MintedTransaction
	finalized    []*models.FinalizedTransaction
	mintedErr    error
	finalizedErr error
	existsErr    error
}

func (f *fakeTxRepo) AppendMinted(ctx context.Context, record *models.MintedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mintedErr != nil {
		return f.mintedErr
	}
	f.minted = append(f.minted, record)
	return nil
}

func (f *fakeTxRepo) AppendFinalized(ctx context.Context, record *models.FinalizedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizedErr != nil {
		return f.finalizedErr
	}
	f.finalized = append(f.finalized, record)
	return nil
}

func (f *fakeTxRepo) ListMinted(ctx context.Context) ([]*models.MintedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.MintedTransaction(nil), f.minted...), nil
}

func (f *fakeTxRepo) ListFinalized(ctx context.Context) ([]*models.FinalizedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.FinalizedTransaction(nil), f.finalized...), nil
}

func (f *fakeTxRepo) MintedExists(ctx context.Context, txDigest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.minted {
		if r.TxDigest == txDigest {
			return true, nil
		}
	}
	return false, nil
}

type fakeEventSource struct {
	page        *clients.EventPage
	err         error
	gotCursor   string
	gotPageSize int
}

func (f *fakeEventSource) QueryEvents(ctx context.Context, packageID, moduleID, cursor string, pageSize int) (*clients.EventPage, error) {
	f.gotCursor = cursor
	f.gotPageSize = pageSize
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeLedger struct {
	mu              sync.Mutex
	balance         *big.Int
	balanceErr      error
	transferErr     error
	transferFromErr error
	transfers       []string // to-account of each Transfer call
	transferFroms   [][2]string
	nextBlock       int
}

func (f *fakeLedger) Transfer(ctx context.Context, ledgerID, toAccount string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.nextBlock++
	f.transfers = append(f.transfers, toAccount)
	return "block-" + strconv.Itoa(f.nextBlock), nil
}

func (f *fakeLedger) TransferFrom(ctx context.Context, ledgerID, fromAccount, toAccount string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferFromErr != nil {
		return "", f.transferFromErr
	}
	f.nextBlock++
	f.transferFroms = append(f.transferFroms, [2]string{fromAccount, toAccount})
	return "block-" + strconv.Itoa(f.nextBlock), nil
}

func (f *fakeLedger) BalanceOf(ctx context.Context, ledgerID, account string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

type fakeBus struct {
	mu        sync.Mutex
	mints     int
	withdraws int
}

func (f *fakeBus) PublishMintEvent(msg *clients.MintEventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mints++
	return nil
}

func (f *fakeBus) PublishWithdrawEvent(msg *clients.WithdrawEventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdraws++
	return nil
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (f *fakeBroadcaster) BroadcastJSON(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, v)
}

func depositEvent(txDigest, principal, value string) clients.SuiEvent {
	return clients.SuiEvent{
		ID:     clients.SuiEventID{TxDigest: txDigest, EventSeq: "0"},
		Sender: "0xsender",
		ParsedJSON: clients.SuiEventPayload{
			From:             "0xsender",
			MinterAddress:    "0xminter",
			PrincipalAddress: principal,
			Value:            value,
		},
	}
}

// ---------------------------------------------------------------------------
// mint cycle
// ---------------------------------------------------------------------------

func TestPollAndMintFirstRun(t *testing.T) {
	configRepo := newFakeConfigRepo()
	txRepo := &fakeTxRepo{}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-a", "alice", "100"),
			depositEvent("digest-b", "bob", "50"),
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-b", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(1000)}
	bus := &fakeBus{}
	push := &fakeBroadcaster{}

	svc := NewMintService(configRepo, txRepo, source, ledger, bus, push, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}

	// No cursor yet, so the large page size applies and no cursor is sent.
	if source.gotCursor != "" {
		t.Fatalf("cursor sent on first run: %q", source.gotCursor)
	}
	if source.gotPageSize != 18000 {
		t.Fatalf("page size = %d, want 18000", source.gotPageSize)
	}

	if len(txRepo.minted) != 2 {
		t.Fatalf("minted %d records, want 2", len(txRepo.minted))
	}
	if txRepo.minted[0].ToPrincipal != "alice" || txRepo.minted[1].ToPrincipal != "bob" {
		t.Fatalf("unexpected recipients: %+v", txRepo.minted)
	}
	if txRepo.minted[0].FromAddress != "0xsender" {
		t.Fatalf("from address = %q, want event sender", txRepo.minted[0].FromAddress)
	}
	if txRepo.minted[0].TxDigest != "digest-a" || txRepo.minted[0].EventSeq != "0" {
		t.Fatalf("event identity not recorded: %+v", txRepo.minted[0])
	}

	cursor, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey)
	if !found || cursor != "digest-b" {
		t.Fatalf("cursor = %q (found=%v), want digest-b", cursor, found)
	}

	if bus.mints != 2 {
		t.Fatalf("published %d mint events, want 2", bus.mints)
	}
	if len(push.messages) != 2 {
		t.Fatalf("broadcast %d messages, want 2", len(push.messages))
	}
}

func TestPollAndMintStopsAtCursor(t *testing.T) {
	configRepo := newFakeConfigRepo()
	configRepo.values[models.ProcessedTxDigestKey] = "digest-old"

	txRepo := &fakeTxRepo{}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-new", "carol", "10"),
			depositEvent("digest-old", "alice", "100"), // already processed
			depositEvent("digest-older", "bob", "50"),  // already processed
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-new", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(1000)}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}

	if source.gotCursor != "digest-old" {
		t.Fatalf("cursor sent = %q, want digest-old", source.gotCursor)
	}
	if source.gotPageSize != 2 {
		t.Fatalf("page size = %d, want cursor page size 2", source.gotPageSize)
	}

	if len(txRepo.minted) != 1 {
		t.Fatalf("minted %d records, want 1", len(txRepo.minted))
	}
	if txRepo.minted[0].ToPrincipal != "carol" {
		t.Fatalf("minted for %q, want carol", txRepo.minted[0].ToPrincipal)
	}

	cursor, _, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey)
	if cursor != "digest-new" {
		t.Fatalf("cursor = %q, want digest-new", cursor)
	}
}

func TestPollAndMintInsufficientBalanceLeavesCursor(t *testing.T) {
	configRepo := newFakeConfigRepo()
	configRepo.values[models.ProcessedTxDigestKey] = "digest-old"

	txRepo := &fakeTxRepo{}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-new", "carol", "5000"), // exceeds bridge balance
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-new", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(100)}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}

	if len(txRepo.minted) != 0 {
		t.Fatalf("minted %d records, want 0", len(txRepo.minted))
	}
	// The event stays pending: the cursor must not move past it.
	cursor, _, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey)
	if cursor != "digest-old" {
		t.Fatalf("cursor advanced to %q despite skipped event", cursor)
	}
	if len(ledger.transfers) != 0 {
		t.Fatal("transfer attempted despite insufficient balance")
	}
}

func TestPollAndMintRetryDoesNotRemint(t *testing.T) {
	configRepo := newFakeConfigRepo()
	txRepo := &fakeTxRepo{}
	// The affordable event mints on the first cycle; the oversized one keeps
	// the batch incomplete so the same page is fetched again.
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-small", "bob", "50"),
			depositEvent("digest-large", "alice", "5000"),
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-large", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(100)}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if len(ledger.transfers) != 1 || ledger.transfers[0] != "bob" {
		t.Fatalf("transfers after first cycle = %v, want [bob]", ledger.transfers)
	}
	if _, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey); found {
		t.Fatal("cursor advanced despite skipped event")
	}

	// Retry with the balance still short: bob's deposit is already recorded
	// and must not be paid out a second time.
	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if len(ledger.transfers) != 1 {
		t.Fatalf("transfers after retry = %v, want exactly one for bob", ledger.transfers)
	}

	// Once the balance is topped up the pending event mints and the batch
	// completes; the already-recorded event still counts toward advancing.
	ledger.balance = big.NewInt(10000)
	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("third cycle failed: %v", err)
	}
	if len(ledger.transfers) != 2 || ledger.transfers[1] != "alice" {
		t.Fatalf("transfers after third cycle = %v, want [bob alice]", ledger.transfers)
	}
	if len(txRepo.minted) != 2 {
		t.Fatalf("minted %d records, want 2", len(txRepo.minted))
	}
	cursor, _, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey)
	if cursor != "digest-large" {
		t.Fatalf("cursor = %q, want digest-large", cursor)
	}
}

func TestPollAndMintDedupLookupFailureLeavesCursor(t *testing.T) {
	configRepo := newFakeConfigRepo()
	txRepo := &fakeTxRepo{existsErr: errors.New("db down")}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-a", "alice", "100"),
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-a", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(1000)}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}
	// Without a reliable answer the event must be neither minted nor passed.
	if len(ledger.transfers) != 0 {
		t.Fatal("transfer attempted with dedup lookup failing")
	}
	if _, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey); found {
		t.Fatal("cursor advanced with dedup lookup failing")
	}
}

func TestPollAndMintMalformedEventAborts(t *testing.T) {
	configRepo := newFakeConfigRepo()
	txRepo := &fakeTxRepo{}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-a", "alice", "100"),
			depositEvent("digest-b", "", "not-a-number"),
			depositEvent("digest-c", "carol", "10"),
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-a", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(1000)}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	err := svc.PollAndMint(context.Background())
	if err == nil {
		t.Fatal("expected error for malformed event")
	}
	if !errors.Is(err, bridgeerr.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}

	// The good event before the malformed one was minted, but the cursor must
	// not advance so the batch is retried.
	if len(txRepo.minted) != 1 {
		t.Fatalf("minted %d records, want 1", len(txRepo.minted))
	}
	if _, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey); found {
		t.Fatal("cursor advanced despite aborted cycle")
	}
}

func TestPollAndMintTransferFailureSkips(t *testing.T) {
	configRepo := newFakeConfigRepo()
	txRepo := &fakeTxRepo{}
	source := &fakeEventSource{page: &clients.EventPage{
		Data: []clients.SuiEvent{
			depositEvent("digest-a", "alice", "100"),
		},
		NextCursor: clients.SuiEventID{TxDigest: "digest-a", EventSeq: "0"},
	}}
	ledger := &fakeLedger{balance: big.NewInt(1000), transferErr: errors.New("ledger unavailable")}

	svc := NewMintService(configRepo, txRepo, source, ledger, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}
	if len(txRepo.minted) != 0 {
		t.Fatal("record appended despite failed transfer")
	}
	if _, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey); found {
		t.Fatal("cursor advanced despite failed transfer")
	}
}

func TestPollAndMintMissingConfig(t *testing.T) {
	configRepo := newFakeConfigRepo()
	delete(configRepo.values, models.LedgerIDKey)

	svc := NewMintService(configRepo, &fakeTxRepo{}, &fakeEventSource{}, &fakeLedger{balance: big.NewInt(0)}, nil, nil, 18000, 2)

	err := svc.PollAndMint(context.Background())
	if !errors.Is(err, bridgeerr.ErrConfigMissing) {
		t.Fatalf("error = %v, want ErrConfigMissing", err)
	}
}

func TestPollAndMintNoEvents(t *testing.T) {
	configRepo := newFakeConfigRepo()
	source := &fakeEventSource{page: &clients.EventPage{}}

	svc := NewMintService(configRepo, &fakeTxRepo{}, source, &fakeLedger{balance: big.NewInt(0)}, nil, nil, 18000, 2)

	if err := svc.PollAndMint(context.Background()); err != nil {
		t.Fatalf("PollAndMint failed: %v", err)
	}
	if _, found, _ := configRepo.Get(context.Background(), models.ProcessedTxDigestKey); found {
		t.Fatal("cursor written with no events")
	}
}
