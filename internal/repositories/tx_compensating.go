package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"marketplace/internal/models"
)

// CompensatingTxManager provides all-or-nothing stock moves and status changes
// for stores without multi-document transactions. Every successful stock
// change or status transition made inside fn is recorded and reversed if fn
// returns an error.
type CompensatingTxManager struct {
	products ProductRepository
	orders   OrderRepository
}

// NewCompensatingTxManager creates a new CompensatingTxManager.
func NewCompensatingTxManager(products ProductRepository, orders OrderRepository) *CompensatingTxManager {
	return &CompensatingTxManager{products: products, orders: orders}
}

// WithinTx runs fn and undoes its stock changes on failure.
func (m *CompensatingTxManager) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	tracked := &undoProducts{ProductRepository: m.products}
	orders := &undoOrders{OrderRepository: m.orders}
	err := fn(&txRepos{products: tracked, orders: orders})
	if err == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	if rbErr := errors.Join(tracked.rollback(ctx), orders.rollback(ctx)); rbErr != nil {
		return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
	}
	return err
}

type stockMove struct {
	productID string
	delta     int
}

type undoProducts struct {
	ProductRepository
	mu    sync.Mutex
	moves []stockMove
}

func (p *undoProducts) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	ok, err := p.ProductRepository.DecrementStock(ctx, id, qty)
	if ok && err == nil {
		p.record(id, -qty)
	}
	return ok, err
}

func (p *undoProducts) IncrementStock(ctx context.Context, id string, qty int) error {
	if err := p.ProductRepository.IncrementStock(ctx, id, qty); err != nil {
		return err
	}
	p.record(id, qty)
	return nil
}

func (p *undoProducts) record(id string, delta int) {
	p.mu.Lock()
	p.moves = append(p.moves, stockMove{productID: id, delta: delta})
	p.mu.Unlock()
}

// rollback reverses recorded moves, newest first.
func (p *undoProducts) rollback(ctx context.Context) error {
	p.mu.Lock()
	moves := p.moves
	p.moves = nil
	p.mu.Unlock()

	var errs []error
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		if m.delta < 0 {
			if err := p.ProductRepository.IncrementStock(ctx, m.productID, -m.delta); err != nil {
				errs = append(errs, fmt.Errorf("restore %d of product %s: %w", -m.delta, m.productID, err))
			}
			continue
		}
		// An increment that must be undone can race with new orders; take back
		// what is still available.
		if _, err := p.ProductRepository.DecrementStock(ctx, m.productID, m.delta); err != nil {
			errs = append(errs, fmt.Errorf("take back %d of product %s: %w", m.delta, m.productID, err))
		}
	}
	return errors.Join(errs...)
}

type statusMove struct {
	orderID string
	from    models.OrderStatus
	to      models.OrderStatus
}

type undoOrders struct {
	OrderRepository
	mu    sync.Mutex
	moves []statusMove
}

func (o *undoOrders) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) (bool, error) {
	ok, err := o.OrderRepository.UpdateStatus(ctx, order, from)
	if ok && err == nil {
		o.mu.Lock()
		o.moves = append(o.moves, statusMove{orderID: order.ID, from: from, to: order.Status})
		o.mu.Unlock()
	}
	return ok, err
}

// rollback moves orders back to their previous status, newest first. Only
// non-terminal orders change status, so none had a delivery time before.
func (o *undoOrders) rollback(ctx context.Context) error {
	o.mu.Lock()
	moves := o.moves
	o.moves = nil
	o.mu.Unlock()

	var errs []error
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		revert := &models.Order{ID: m.orderID, Status: m.from}
		ok, err := o.OrderRepository.UpdateStatus(ctx, revert, m.to)
		if err != nil {
			errs = append(errs, fmt.Errorf("revert order %s to %s: %w", m.orderID, m.from, err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("revert order %s to %s: status changed again", m.orderID, m.from))
		}
	}
	return errors.Join(errs...)
}
