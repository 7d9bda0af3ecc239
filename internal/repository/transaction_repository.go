package repository

import (
	"context"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository exposes the two append-only transaction ledgers.
// Records are immutable once written; there are no update or delete paths.
type TransactionRepository interface {
	AppendMinted(ctx context.Context, record *models.MintedTransaction) error
	AppendFinalized(ctx context.Context, record *models.FinalizedTransaction) error
	ListMinted(ctx context.Context) ([]*models.MintedTransaction, error)
	ListFinalized(ctx context.Context) ([]*models.FinalizedTransaction, error)
	// MintedExists reports whether the source event has already been minted.
	// The mint loop consults it before every transfer so a re-fetched batch
	// never pays out the same deposit twice.
	MintedExists(ctx context.Context, txDigest string) (bool, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) AppendMinted(ctx context.Context, record *models.MintedTransaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *transactionRepository) AppendFinalized(ctx context.Context, record *models.FinalizedTransaction) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *transactionRepository) ListMinted(ctx context.Context) ([]*models.MintedTransaction, error) {
	var records []*models.MintedTransaction
	err := r.db.WithContext(ctx).Order("block_index ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *transactionRepository) ListFinalized(ctx context.Context) ([]*models.FinalizedTransaction, error) {
	var records []*models.FinalizedTransaction
	err := r.db.WithContext(ctx).Order("block_index ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *transactionRepository) MintedExists(ctx context.Context, txDigest string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MintedTransaction{}).
		Where("tx_digest = ?", txDigest).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
