package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sticker is a product in the catalog. Stickers are never removed while
// order lines reference them; they are deactivated instead.
type Sticker struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description string          `gorm:"size:255" json:"description"`
	ImageKey    string          `json:"image_key"`                    // storage key of the uploaded image
	ImageURL    string          `gorm:"-" json:"image_url,omitempty"` // computed from ImageKey
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	IsActive    bool            `gorm:"not null;index" json:"is_active"`
	IsCustom    bool            `gorm:"not null" json:"is_custom"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Sticker model
func (Sticker) TableName() string {
	return "stickers"
}
