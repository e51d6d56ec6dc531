package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment records the payment method chosen for an order. Status mirrors the order status.
type Payment struct {
	ID               uint                               `gorm:"primaryKey" json:"id"`
	OrderID          uint                               `gorm:"uniqueIndex;not null" json:"order_id"`
	PaymentMethod    string                             `gorm:"size:32;not null" json:"payment_method"`
	Status           string                             `gorm:"size:32;not null" json:"status"`
	GatewaySessionID *string                            `gorm:"index" json:"gateway_session_id,omitempty"`
	ReturnToken      string                             `gorm:"size:64" json:"-"` // authenticates the gateway's cancel redirect
	Details          datatypes.JSONType[PaymentDetails] `json:"details"`
	CreatedAt        time.Time                          `json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// PaymentDetails is the checkout contact information stored in Payment.Details
type PaymentDetails struct {
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PickupDate  string `json:"pickup_date,omitempty"`
	PickupTime  string `json:"pickup_time,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}
