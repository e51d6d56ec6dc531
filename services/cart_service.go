package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/gorm"
)

// Quantity actions accepted by UpdateQuantity
const (
	QuantityIncrease = "increase"
	QuantityDecrease = "decrease"
)

// CartService maintains the single open cart of each user
type CartService struct {
	db *gorm.DB
}

// NewCartService creates a cart service backed by db
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetCart returns the user's open cart with its items, or an empty unsaved cart
func (s *CartService) GetCart(ctx context.Context, userID uint) (*models.Order, error) {
	var cart models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Order{
			UserID:     userID,
			Status:     models.OrderStatusCart,
			TotalPrice: decimal.Zero,
			Items:      []models.OrderItem{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return LoadOrder(ctx, s.db, cart.ID)
}

// AddToCart adds one unit of a sticker to the user's cart, creating the cart when needed.
// A sticker already in the cart gets its quantity incremented instead of a second line.
func (s *CartService) AddToCart(ctx context.Context, userID, stickerID uint) (*models.Order, error) {
	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sticker models.Sticker
		if err := tx.First(&sticker, stickerID).Error; err != nil {
			return notFoundOr(err, ErrStickerNotFound, "failed to load sticker")
		}
		if !sticker.IsActive {
			return ErrStickerUnavailable
		}

		cart, err := findOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		cartID = cart.ID

		var item models.OrderItem
		err = tx.Where("order_id = ? AND sticker_id = ?", cart.ID, sticker.ID).First(&item).Error
		switch {
		case err == nil:
			if err := tx.Model(&item).UpdateColumn("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
				return fmt.Errorf("failed to update cart item quantity: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.OrderItem{
				OrderID:     cart.ID,
				StickerID:   sticker.ID,
				Quantity:    1,
				PriceAtTime: sticker.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return duplicateOr(err, ErrDuplicateName.WithMessage("Sticker is already in the cart"), "failed to create cart item")
			}
		default:
			return fmt.Errorf("failed to load cart item: %w", err)
		}

		return RecomputeTotal(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return LoadOrder(ctx, s.db, cartID)
}

// RemoveFromCart deletes a line from the user's cart
func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID uint) (*models.Order, error) {
	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := cartItemForUser(tx, userID, itemID)
		if err != nil {
			return err
		}
		cartID = item.OrderID

		if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
		return RecomputeTotal(tx, item.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return LoadOrder(ctx, s.db, cartID)
}

// UpdateQuantity adds or removes one unit of a cart line.
// Decreasing a line with quantity 1 leaves it unchanged; removal is RemoveFromCart.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uint, action string) (*models.Order, error) {
	if action != QuantityIncrease && action != QuantityDecrease {
		return nil, ErrInvalidAction
	}

	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := cartItemForUser(tx, userID, itemID)
		if err != nil {
			return err
		}
		cartID = item.OrderID

		switch {
		case action == QuantityIncrease:
			err = tx.Model(item).UpdateColumn("quantity", gorm.Expr("quantity + 1")).Error
		case item.Quantity > 1:
			err = tx.Model(item).UpdateColumn("quantity", gorm.Expr("quantity - 1")).Error
		}
		if err != nil {
			return fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		return RecomputeTotal(tx, item.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return LoadOrder(ctx, s.db, cartID)
}

// RecomputeTotal rewrites an order's total_price from its lines.
// It is the only writer of total_price.
func RecomputeTotal(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}

	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total_price", total).Error; err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return nil
}

// LoadOrder reads an order with its items, stickers and payment
func LoadOrder(ctx context.Context, db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Sticker").
		Preload("Payment").
		First(&order, orderID).Error
	if err != nil {
		return nil, notFoundOr(err, ErrOrderNotFound, "failed to load order")
	}
	return &order, nil
}

func findOrCreateCart(tx *gorm.DB, userID uint) (*models.Order, error) {
	var cart models.Order
	err := tx.Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart = models.Order{
		UserID:     userID,
		Status:     models.OrderStatusCart,
		TotalPrice: decimal.Zero,
	}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &cart, nil
}

// cartItemForUser loads a line of the user's open cart. Lines of other users'
// carts or of placed orders are reported as not found.
func cartItemForUser(tx *gorm.DB, userID, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.id = ? AND orders.user_id = ? AND orders.status = ?", itemID, userID, models.OrderStatusCart).
		First(&item).Error
	if err != nil {
		return nil, notFoundOr(err, ErrOrderItemNotFound, "failed to load cart item")
	}
	return &item, nil
}
