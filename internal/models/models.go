package models

import (
	"time"
)

// Persistent configuration keys. Names are kept identical to the keys the
// relay has always written so existing deployments keep their state.
const (
	ProcessedTxDigestKey = "txDigest"
	LedgerIDKey          = "ledger_canister_id_key"
	LocalMgmtIDKey       = "local_mgmt_principal_id_key"
	SuiPackageIDKey      = "sui_package_id_key"
	SuiModuleIDKey       = "sui_module_id_key"
	APIURLKey            = "api_url_key"
	TxDigestURLKey       = "tx_digest_url_key"
	IsLocalKey           = "is_local_key"
	MinterTokenKey       = "minter_token_local_key"
)

// BridgeConfig is a single key/value row of the persistent config store.
// The poll cursor lives here under ProcessedTxDigestKey.
type BridgeConfig struct {
	ConfigKey   string    `gorm:"primaryKey;size:128" json:"config_key"`
	ConfigValue string    `gorm:"type:text;not null" json:"config_value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (BridgeConfig) TableName() string {
	return "bridge_configs"
}

// MintedTransaction records one completed mint caused by a source-chain
// deposit event. Append-only; rows are never updated or deleted. The unique
// index on the source event identifier is what makes minting idempotent: a
// re-fetched event that already has a row is skipped, never minted twice.
type MintedTransaction struct {
	BlockIndex  string    `gorm:"primaryKey;size:64" json:"block_index"`
	TxDigest    string    `gorm:"column:tx_digest;size:64;not null;uniqueIndex:idx_minted_event" json:"tx_digest"`
	EventSeq    string    `gorm:"column:event_seq;size:16;not null;uniqueIndex:idx_minted_event" json:"event_seq"`
	Date        string    `gorm:"size:32;not null" json:"date"`
	Amount      string    `gorm:"size:64;not null" json:"amount"`
	FromAddress string    `gorm:"column:from_address;size:128;not null" json:"from"`
	ToPrincipal string    `gorm:"column:to_principal;size:128;not null" json:"to"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MintedTransaction) TableName() string {
	return "minted_transactions"
}

// FinalizedTransaction records one withdrawal that was fully submitted to the
// source chain. Append-only.
type FinalizedTransaction struct {
	BlockIndex      string    `gorm:"primaryKey;size:64" json:"block_index"`
	Date            string    `gorm:"size:32;not null" json:"date"`
	Amount          string    `gorm:"size:64;not null" json:"amount"`
	CallerPrincipal string    `gorm:"size:128;not null" json:"from"`
	TxReference     string    `gorm:"size:256;not null" json:"tx"`
	CreatedAt       time.Time `json:"created_at"`
}

func (FinalizedTransaction) TableName() string {
	return "finalized_transactions"
}
