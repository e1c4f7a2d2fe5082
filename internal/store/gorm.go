// internal/store/gorm.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/fifo-inventory/internal/database"
	"github.com/javajoker/fifo-inventory/internal/models"
)

// GormStore persists the ledger in postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db, readOnly: true})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (s *GormStore) LastSequence(ctx context.Context) (uint64, error) {
	var seq struct {
		Batches      uint64
		Transactions uint64
	}
	err := s.db.WithContext(ctx).Raw(
		"SELECT (SELECT COALESCE(MAX(sequence), 0) FROM batches) AS batches, " +
			"(SELECT COALESCE(MAX(sequence), 0) FROM transactions) AS transactions",
	).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read last sequence: %w", err)
	}

	if seq.Batches > seq.Transactions {
		return seq.Batches, nil
	}
	return seq.Transactions, nil
}

func (s *GormStore) Close() error {
	return database.Close(s.db)
}

type gormTx struct {
	db       *gorm.DB
	readOnly bool
}

func (tx *gormTx) GetProduct(productID string) (models.Product, error) {
	var p models.Product
	if err := tx.db.Where("product_id = ?", productID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, ErrNotFound
		}
		return models.Product{}, fmt.Errorf("database error: %w", err)
	}
	return p, nil
}

func (tx *gormTx) PutProduct(p models.Product) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if err := tx.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error; err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (tx *gormTx) ListProducts() ([]models.Product, error) {
	var products []models.Product
	if err := tx.db.Order("product_id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (tx *gormTx) ListBatches(productID string) ([]models.Batch, error) {
	query := tx.db.Order("created_at, sequence")
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}

	var batches []models.Batch
	if err := query.Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (tx *gormTx) PutBatch(b models.Batch) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if err := tx.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&b).Error; err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (tx *gormTx) AppendTransaction(t models.Transaction) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if err := tx.db.Create(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (tx *gormTx) ListTransactions(limit int) ([]models.Transaction, error) {
	query := tx.db.Order("sequence DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (tx *gormTx) HasEvent(eventID string) (bool, error) {
	var count int64
	if err := tx.db.Model(&models.Transaction{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return count > 0, nil
}
