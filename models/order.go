package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. A single vocabulary is shared by orders and their payments.
const (
	OrderStatusCart         = "cart"
	OrderStatusPending      = "pending"       // stripe selected, awaiting gateway confirmation
	OrderStatusUnpaid       = "unpaid"        // cash or tikkie selected, awaiting customer confirmation
	OrderStatusPaid         = "paid"          // stripe confirmed
	OrderStatusCashUnpaid   = "cash unpaid"   // committed, paid on pickup
	OrderStatusTikkieUnpaid = "tikkie unpaid" // committed, payment request pending
	OrderStatusConfirmed    = "confirmed"
	OrderStatusFinished     = "finished"
	OrderStatusCancelled    = "cancelled"
)

// Payment methods offered at checkout
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCash   = "cash"
	PaymentMethodTikkie = "tikkie"
)

// adminTransitions lists the statuses an administrator may move an order to
var adminTransitions = map[string][]string{
	OrderStatusPending:      {OrderStatusCancelled},
	OrderStatusUnpaid:       {OrderStatusCancelled},
	OrderStatusPaid:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusCashUnpaid:   {OrderStatusPaid, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusTikkieUnpaid: {OrderStatusPaid, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:    {OrderStatusFinished, OrderStatusCancelled},
}

// Order is a customer's cart while its status is "cart", and a placed order afterwards.
// TotalPrice always equals the sum of price_at_time * quantity over its items.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	User             *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status           string          `gorm:"size:32;not null;index" json:"status"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	StockCommittedAt *time.Time      `json:"stock_committed_at,omitempty"` // set once by the stock ledger
	Items            []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Payment          *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsStockCommitted reports whether the stock ledger already deducted this order
func (o *Order) IsStockCommitted() bool {
	return o.StockCommittedAt != nil
}

// OrderItem is one line of an order; there is at most one line per sticker.
// PriceAtTime is the sticker price when the line was created and never changes.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;uniqueIndex:idx_order_items_order_sticker" json:"order_id"`
	StickerID   uint            `gorm:"not null;uniqueIndex:idx_order_items_order_sticker;index" json:"sticker_id"`
	Sticker     *Sticker        `gorm:"foreignKey:StickerID" json:"sticker,omitempty"`
	Quantity    int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_time"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns price_at_time * quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// IsValidOrderStatus reports whether status belongs to the order vocabulary
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusCart, OrderStatusPending, OrderStatusUnpaid, OrderStatusPaid,
		OrderStatusCashUnpaid, OrderStatusTikkieUnpaid, OrderStatusConfirmed,
		OrderStatusFinished, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether method is offered at checkout
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodStripe, PaymentMethodCash, PaymentMethodTikkie:
		return true
	}
	return false
}

// AwaitingStatusFor returns the status an order takes when method is selected at checkout
func AwaitingStatusFor(method string) string {
	if method == PaymentMethodStripe {
		return OrderStatusPending
	}
	return OrderStatusUnpaid
}

// CommittedStatusFor returns the status an order takes once its payment is confirmed
func CommittedStatusFor(method string) string {
	switch method {
	case PaymentMethodCash:
		return OrderStatusCashUnpaid
	case PaymentMethodTikkie:
		return OrderStatusTikkieUnpaid
	default:
		return OrderStatusPaid
	}
}

// IsAwaitingPayment reports whether status is one of the post-checkout, pre-confirmation states
func IsAwaitingPayment(status string) bool {
	return status == OrderStatusPending || status == OrderStatusUnpaid
}

// CanAdminTransition reports whether an administrator may move an order from one status to another
func CanAdminTransition(from, to string) bool {
	for _, allowed := range adminTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
