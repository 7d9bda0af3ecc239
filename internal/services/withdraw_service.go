package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/clients"
	"bridge-backend/internal/metrics"
	"bridge-backend/internal/models"
	"bridge-backend/internal/repository"
	"bridge-backend/internal/suitx"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pipeline stages, used for metrics and failure reporting.
const (
	StageCustody   = "custody"
	StagePublicKey = "public_key"
	StageBuild     = "build"
	StageDigest    = "digest"
	StageSign      = "sign"
	StageSubmit    = "submit"
	StageRecord    = "record"
)

// WithdrawService runs the withdrawal pipeline: lock the caller's funds in
// bridge custody, obtain an unsigned transaction, digest it, obtain a
// threshold signature, submit the signed envelope and record the outcome.
//
// There is no compensation path: a failure after the custody transfer leaves
// the caller's funds in the custody account. The failed stage is returned to
// the caller and counted, so operators can reconcile manually.
type WithdrawService struct {
	configRepo repository.ConfigRepository
	txRepo     repository.TransactionRepository
	ledger     Ledger
	builder    Builder
	signer     Signer
	submitter  Submitter
	bus        EventBus    // optional
	push       Broadcaster // optional

	// One withdrawal in flight per caller.
	lockMu      sync.Mutex
	callerLocks map[string]*sync.Mutex
}

// NewWithdrawService creates the withdrawal pipeline.
func NewWithdrawService(
	configRepo repository.ConfigRepository,
	txRepo repository.TransactionRepository,
	ledger Ledger,
	builder Builder,
	signer Signer,
	submitter Submitter,
	bus EventBus,
	push Broadcaster,
) *WithdrawService {
	return &WithdrawService{
		configRepo:  configRepo,
		txRepo:      txRepo,
		ledger:      ledger,
		builder:     builder,
		signer:      signer,
		submitter:   submitter,
		bus:         bus,
		push:        push,
		callerLocks: make(map[string]*sync.Mutex),
	}
}

// Withdraw moves amount from the caller's ledger account back to recipient on
// the source chain and returns the source-chain transaction digest.
func (s *WithdrawService) Withdraw(ctx context.Context, caller, amount, recipient string) (string, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Sign() <= 0 {
		return "", fmt.Errorf("invalid amount %q", amount)
	}
	if recipient == "" {
		return "", fmt.Errorf("recipient is required")
	}

	lock := s.lockFor(caller)
	if !lock.TryLock() {
		return "", fmt.Errorf("a withdrawal is already in flight for this caller")
	}
	defer lock.Unlock()

	started := time.Now()
	requestID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"caller":     caller,
		"amount":     value.String(),
		"recipient":  recipient,
	})
	log.Info("withdrawal requested")
	metrics.WithdrawTotal.Inc()

	digest, err := s.run(ctx, log, caller, value, recipient)
	metrics.WithdrawDuration.Observe(time.Since(started).Seconds())
	return digest, err
}

func (s *WithdrawService) run(ctx context.Context, log *logrus.Entry, caller string, amount *big.Int, recipient string) (string, error) {
	ledgerID, err := s.requiredConfig(ctx, models.LedgerIDKey)
	if err != nil {
		return "", s.fail(log, StageCustody, err)
	}
	custodyAccount, err := s.requiredConfig(ctx, models.MinterTokenKey)
	if err != nil {
		return "", s.fail(log, StageCustody, err)
	}

	// FundsLocked: delegated transfer into bridge custody. If this fails the
	// pipeline aborts with no funds at risk.
	blockIndex, err := s.ledger.TransferFrom(ctx, ledgerID, caller, custodyAccount, amount)
	if err != nil {
		return "", s.fail(log, StageCustody, err)
	}
	log = log.WithField("block_index", blockIndex)
	log.Info("funds locked in bridge custody")

	// Every failure from here on leaves the caller's funds in custody.
	publicKey, err := s.signer.PublicKey(ctx)
	if err != nil {
		return "", s.fail(log, StagePublicKey, err)
	}
	publicKeyB64 := base64.StdEncoding.EncodeToString(publicKey)

	built, err := s.builder.BuildTransfer(ctx, publicKeyB64, recipient, amount.String())
	if err != nil {
		return "", s.fail(log, StageBuild, err)
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil {
		return "", s.fail(log, StageDigest, fmt.Errorf("%w: tx_bytes: %v", bridgeerr.ErrMalformedResponse, err))
	}
	builderDigest, err := base64.StdEncoding.DecodeString(built.Digest)
	if err != nil {
		return "", s.fail(log, StageDigest, fmt.Errorf("%w: digest: %v", bridgeerr.ErrMalformedResponse, err))
	}

	// Digested: the canonical intent digest must match what the chain will
	// independently recompute; the builder's copy is cross-checked so a
	// divergent builder cannot make us sign something else.
	digest := suitx.IntentDigest(txBytes)
	if !bytes.Equal(digest[:], builderDigest) {
		return "", s.fail(log, StageDigest,
			fmt.Errorf("%w: builder digest does not match canonical intent digest", bridgeerr.ErrMalformedResponse))
	}

	signingHash := suitx.SigningHash(digest)
	signature, err := s.signer.Sign(ctx, signingHash[:])
	if err != nil {
		return "", s.fail(log, StageSign, err)
	}
	if err := suitx.VerifySignature(publicKey, signingHash, signature); err != nil {
		return "", s.fail(log, StageSign, fmt.Errorf("%w: %v", bridgeerr.ErrSigning, err))
	}
	envelope := suitx.EncodeEnvelope(signature, publicKey)

	txDigest, err := s.submitter.ExecuteTransactionBlock(ctx, built.TxBytes, envelope)
	if err != nil {
		return "", s.fail(log, StageSubmit, err)
	}

	record := &models.FinalizedTransaction{
		BlockIndex:      blockIndex,
		Date:            strconv.FormatInt(time.Now().UnixNano(), 10),
		Amount:          amount.String(),
		CallerPrincipal: caller,
		TxReference:     s.explorerLink(ctx, txDigest),
	}
	if err := s.txRepo.AppendFinalized(ctx, record); err != nil {
		return "", s.fail(log, StageRecord, err)
	}

	log.WithField("tx_digest", txDigest).Info("withdrawal finalized")
	s.notifyWithdraw(record, txDigest)
	return txDigest, nil
}

func (s *WithdrawService) fail(log *logrus.Entry, stage string, err error) error {
	metrics.WithdrawFailures.WithLabelValues(stage).Inc()
	entry := log.WithError(err).WithField("stage", stage)
	if stage == StageCustody {
		entry.Warn("withdrawal aborted before custody")
	} else {
		entry.Error("withdrawal failed with caller funds already in custody")
	}
	return fmt.Errorf("withdraw %s: %w", stage, err)
}

func (s *WithdrawService) explorerLink(ctx context.Context, txDigest string) string {
	network := "mainnet"
	if isLocal, _, err := s.configRepo.Get(ctx, models.IsLocalKey); err == nil && isLocal == "true" {
		network = "testnet"
	}
	return fmt.Sprintf("https://suiscan.xyz/%s/tx/%s", network, txDigest)
}

func (s *WithdrawService) notifyWithdraw(record *models.FinalizedTransaction, txDigest string) {
	msg := &clients.WithdrawEventMessage{
		BlockIndex: record.BlockIndex,
		TxDigest:   txDigest,
		Amount:     record.Amount,
		Caller:     record.CallerPrincipal,
		Timestamp:  time.Now().UTC(),
	}
	if s.bus != nil {
		if err := s.bus.PublishWithdrawEvent(msg); err != nil {
			logrus.WithError(err).Warn("failed to publish withdraw event")
		}
	}
	if s.push != nil {
		s.push.BroadcastJSON(msg)
	}
}

func (s *WithdrawService) lockFor(caller string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.callerLocks[caller]
	if !ok {
		lock = &sync.Mutex{}
		s.callerLocks[caller] = lock
	}
	return lock
}

func (s *WithdrawService) requiredConfig(ctx context.Context, key string) (string, error) {
	value, found, err := s.configRepo.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read config %q: %w", key, err)
	}
	if !found || value == "" {
		return "", bridgeerr.ConfigMissing(key)
	}
	return value, nil
}
