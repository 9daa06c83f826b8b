package repositories

import (
	"context"

	"gorm.io/gorm"
)

// GORMTxManager runs units of work inside a database transaction.
type GORMTxManager struct {
	db *gorm.DB
}

// NewGORMTxManager creates a new GORMTxManager.
func NewGORMTxManager(db *gorm.DB) *GORMTxManager {
	return &GORMTxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (m *GORMTxManager) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepos{
			products: NewGORMProductRepository(tx),
			orders:   NewGORMOrderRepository(tx),
		})
	})
}
