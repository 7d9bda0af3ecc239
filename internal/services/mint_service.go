package services

import (
	"context"
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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MintService is the event ingestion and minting state machine. A recurring
// timer drives PollAndMint: fetch one page of deposit events after the
// persisted cursor, mint each unseen event on the custodial ledger, then
// advance the cursor.
type MintService struct {
	configRepo repository.ConfigRepository
	txRepo     repository.TransactionRepository
	source     EventSource
	ledger     Ledger
	bus        EventBus    // optional
	push       Broadcaster // optional

	eventPageSize  int
	cursorPageSize int

	// mu serializes poll cycles: at most one in flight. An overlapping timer
	// tick is dropped, not queued.
	mu sync.Mutex
}

// NewMintService creates the minting state machine.
func NewMintService(
	configRepo repository.ConfigRepository,
	txRepo repository.TransactionRepository,
	source EventSource,
	ledger Ledger,
	bus EventBus,
	push Broadcaster,
	eventPageSize, cursorPageSize int,
) *MintService {
	return &MintService{
		configRepo:     configRepo,
		txRepo:         txRepo,
		source:         source,
		ledger:         ledger,
		bus:            bus,
		push:           push,
		eventPageSize:  eventPageSize,
		cursorPageSize: cursorPageSize,
	}
}

// PollAndMint runs one poll cycle. Cursor policy is per-batch: the cursor
// advances to the page's nextCursor only when every event in the page was
// minted or already recorded; a skipped or failed event leaves the cursor
// untouched so the whole batch is retried on the next cycle. On that retry
// the mint ledger is consulted per event, so events minted by an earlier
// attempt are passed over instead of paid out again. The cursor never moves
// backwards.
func (s *MintService) PollAndMint(ctx context.Context) error {
	if !s.mu.TryLock() {
		logrus.Debug("mint cycle already in flight, skipping tick")
		return nil
	}
	defer s.mu.Unlock()

	started := time.Now()
	cycleID := uuid.NewString()
	log := logrus.WithField("cycle_id", cycleID)

	err := s.runCycle(ctx, log)
	metrics.MintCycleDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.MintCyclesTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("mint cycle failed")
		return err
	}
	return nil
}

func (s *MintService) runCycle(ctx context.Context, log *logrus.Entry) error {
	packageID, err := s.requiredConfig(ctx, models.SuiPackageIDKey)
	if err != nil {
		return err
	}
	moduleID, err := s.requiredConfig(ctx, models.SuiModuleIDKey)
	if err != nil {
		return err
	}
	ledgerID, err := s.requiredConfig(ctx, models.LedgerIDKey)
	if err != nil {
		return err
	}
	bridgeAccount, err := s.requiredConfig(ctx, models.MinterTokenKey)
	if err != nil {
		return err
	}

	cursor, _, err := s.configRepo.Get(ctx, models.ProcessedTxDigestKey)
	if err != nil {
		return fmt.Errorf("failed to read cursor: %w", err)
	}

	pageSize := s.eventPageSize
	if cursor != "" {
		pageSize = s.cursorPageSize
	}

	page, err := s.source.QueryEvents(ctx, packageID, moduleID, cursor, pageSize)
	if err != nil {
		return err
	}

	if len(page.Data) == 0 {
		metrics.MintCyclesTotal.WithLabelValues("no_new_events").Inc()
		log.Debug("no new events")
		return nil
	}

	minted := 0
	alreadyMinted := 0
	batchComplete := true

	for i := range page.Data {
		event := &page.Data[i]

		// Idempotent stop: everything at and past the last processed digest
		// has already been handled.
		if cursor != "" && event.ID.TxDigest == cursor {
			break
		}

		// A partial batch is re-fetched whole on the next cycle, so any event
		// the previous attempt already minted must be passed over here or it
		// would be paid out a second time.
		exists, err := s.txRepo.MintedExists(ctx, event.ID.TxDigest)
		if err != nil {
			log.WithError(err).WithField("tx_digest", event.ID.TxDigest).Warn("mint ledger lookup failed")
			metrics.MintEventsSkipped.WithLabelValues("dedup_check_failed").Inc()
			batchComplete = false
			continue
		}
		if exists {
			log.WithField("tx_digest", event.ID.TxDigest).Debug("event already minted, skipping")
			metrics.MintEventsSkipped.WithLabelValues("already_minted").Inc()
			alreadyMinted++
			continue
		}

		principal := event.ParsedJSON.PrincipalAddress
		amount, ok := new(big.Int).SetString(event.ParsedJSON.Value, 10)
		if principal == "" || !ok || amount.Sign() <= 0 {
			// A malformed payload poisons the whole cycle: abort without
			// advancing the cursor rather than guess at partial data.
			return fmt.Errorf("%w: event %s/%s: principal=%q value=%q",
				bridgeerr.ErrMalformedResponse, event.ID.TxDigest, event.ID.EventSeq,
				principal, event.ParsedJSON.Value)
		}

		balance, err := s.ledger.BalanceOf(ctx, ledgerID, bridgeAccount)
		if err != nil {
			log.WithError(err).WithField("tx_digest", event.ID.TxDigest).Warn("balance check failed")
			metrics.MintEventsSkipped.WithLabelValues("balance_check_failed").Inc()
			batchComplete = false
			continue
		}

		if balance.Cmp(amount) < 0 {
			log.WithFields(logrus.Fields{
				"tx_digest": event.ID.TxDigest,
				"balance":   balance.String(),
				"amount":    amount.String(),
			}).Warn("not enough bridge balance, event left for a later cycle")
			metrics.MintEventsSkipped.WithLabelValues("insufficient_balance").Inc()
			batchComplete = false
			continue
		}

		blockIndex, err := s.ledger.Transfer(ctx, ledgerID, principal, amount)
		if err != nil {
			log.WithError(err).WithField("tx_digest", event.ID.TxDigest).Error("ledger transfer failed")
			metrics.MintEventsSkipped.WithLabelValues("transfer_failed").Inc()
			batchComplete = false
			continue
		}

		record := &models.MintedTransaction{
			BlockIndex:  blockIndex,
			TxDigest:    event.ID.TxDigest,
			EventSeq:    event.ID.EventSeq,
			Date:        strconv.FormatInt(time.Now().UnixNano(), 10),
			Amount:      amount.String(),
			FromAddress: event.Sender,
			ToPrincipal: principal,
		}
		if err := s.txRepo.AppendMinted(ctx, record); err != nil {
			log.WithError(err).WithField("block_index", blockIndex).Error("failed to append mint record")
			batchComplete = false
			continue
		}

		minted++
		metrics.MintEventsProcessed.Inc()
		log.WithFields(logrus.Fields{
			"block_index": blockIndex,
			"tx_digest":   event.ID.TxDigest,
			"amount":      amount.String(),
			"recipient":   principal,
		}).Info("minted tokens")

		s.notifyMint(record, event)
	}

	if batchComplete && minted+alreadyMinted > 0 && page.NextCursor.TxDigest != "" {
		if _, _, err := s.configRepo.Set(ctx, models.ProcessedTxDigestKey, page.NextCursor.TxDigest); err != nil {
			return fmt.Errorf("failed to advance cursor: %w", err)
		}
		log.WithField("cursor", page.NextCursor.TxDigest).Info("cursor advanced")
	}

	if minted > 0 {
		metrics.MintCyclesTotal.WithLabelValues("minted").Inc()
	} else {
		metrics.MintCyclesTotal.WithLabelValues("no_new_events").Inc()
	}
	return nil
}

func (s *MintService) notifyMint(record *models.MintedTransaction, event *clients.SuiEvent) {
	msg := &clients.MintEventMessage{
		BlockIndex: record.BlockIndex,
		TxDigest:   event.ID.TxDigest,
		Amount:     record.Amount,
		Recipient:  record.ToPrincipal,
		Timestamp:  time.Now().UTC(),
	}
	if s.bus != nil {
		if err := s.bus.PublishMintEvent(msg); err != nil {
			logrus.WithError(err).Warn("failed to publish mint event")
		}
	}
	if s.push != nil {
		s.push.BroadcastJSON(msg)
	}
}

func (s *MintService) requiredConfig(ctx context.Context, key string) (string, error) {
	value, found, err := s.configRepo.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read config %q: %w", key, err)
	}
	if !found || value == "" {
		return "", bridgeerr.ConfigMissing(key)
	}
	return value, nil
}
