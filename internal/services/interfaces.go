package services

import (
	"context"
	"math/big"

	"bridge-backend/internal/clients"
)

// EventSource is the paginated deposit-event query on the source chain.
type EventSource interface {
	QueryEvents(ctx context.Context, packageID, moduleID, cursor string, pageSize int) (*clients.EventPage, error)
}

// Submitter executes a signed transaction block on the source chain.
type Submitter interface {
	ExecuteTransactionBlock(ctx context.Context, txBytes, envelope string) (string, error)
}

// Ledger is the custodial ledger service surface the relay needs.
type Ledger interface {
	Transfer(ctx context.Context, ledgerID, toAccount string, amount *big.Int) (string, error)
	TransferFrom(ctx context.Context, ledgerID, fromAccount, toAccount string, amount *big.Int) (string, error)
	BalanceOf(ctx context.Context, ledgerID, account string) (*big.Int, error)
}

// Builder requests unsigned transactions from the off-host builder service.
type Builder interface {
	BuildTransfer(ctx context.Context, publicKeyB64, recipient, amount string) (*clients.TxDigestResponse, error)
}

// Signer is the threshold-signing service surface.
type Signer interface {
	PublicKey(ctx context.Context) ([]byte, error)
	Sign(ctx context.Context, messageHash []byte) ([]byte, error)
}

// EventBus publishes bridge lifecycle events to the message broker.
type EventBus interface {
	PublishMintEvent(msg *clients.MintEventMessage) error
	PublishWithdrawEvent(msg *clients.WithdrawEventMessage) error
}

// Broadcaster pushes bridge lifecycle events to connected live clients.
type Broadcaster interface {
	BroadcastJSON(v interface{})
}
