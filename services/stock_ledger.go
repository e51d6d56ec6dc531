package services

import (
	"fmt"
	"time"

	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/gorm"
)

// StockLedger deducts and restores sticker stock for orders.
// All methods expect to run inside the caller's transaction.
type StockLedger struct{}

// NewStockLedger creates a stock ledger
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// CheckStock verifies every line of the order can be served from current stock without changing it
func (l *StockLedger) CheckStock(tx *gorm.DB, orderID uint) error {
	items, err := l.lines(tx, orderID)
	if err != nil {
		return err
	}
	return checkLines(items)
}

// CommitStock deducts the quantity of every line from its sticker's stock.
// Either every line is deducted or none is. A committed order is never deducted twice.
func (l *StockLedger) CommitStock(tx *gorm.DB, order *models.Order) error {
	if order.IsStockCommitted() {
		return nil
	}

	items, err := l.lines(tx, order.ID)
	if err != nil {
		return err
	}
	if err := checkLines(items); err != nil {
		return err
	}

	for _, item := range items {
		result := tx.Model(&models.Sticker{}).
			Where("id = ? AND stock >= ?", item.StickerID, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to deduct stock for sticker %d: %w", item.StickerID, result.Error)
		}
		if result.RowsAffected == 0 {
			// Stock changed between the check and the update
			return ErrInsufficientStock.WithMessage("Not enough stock for %s", item.Sticker.Name)
		}
	}

	now := time.Now()
	if err := tx.Model(order).UpdateColumn("stock_committed_at", now).Error; err != nil {
		return fmt.Errorf("failed to mark stock committed: %w", err)
	}
	order.StockCommittedAt = &now
	return nil
}

// ReleaseStock returns the quantities of a committed order to stock
func (l *StockLedger) ReleaseStock(tx *gorm.DB, order *models.Order) error {
	if !order.IsStockCommitted() {
		return nil
	}

	items, err := l.lines(tx, order.ID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := tx.Model(&models.Sticker{}).
			Where("id = ?", item.StickerID).
			UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return fmt.Errorf("failed to release stock for sticker %d: %w", item.StickerID, err)
		}
	}

	if err := tx.Model(order).UpdateColumn("stock_committed_at", nil).Error; err != nil {
		return fmt.Errorf("failed to clear stock commit: %w", err)
	}
	order.StockCommittedAt = nil
	return nil
}

func (l *StockLedger) lines(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Preload("Sticker").Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return items, nil
}

func checkLines(items []models.OrderItem) error {
	for _, item := range items {
		if item.Sticker == nil {
			return ErrStickerNotFound
		}
		if item.Sticker.Stock < item.Quantity {
			return ErrInsufficientStock.WithMessage(
				"Not enough stock for %s. Available: %d", item.Sticker.Name, item.Sticker.Stock)
		}
	}
	return nil
}
