package models

import "time"

// Approval statuses of a custom sticker request
const (
	ApprovalPending     = "pending"
	ApprovalApproved    = "approved"
	ApprovalDenied      = "denied"
	ApprovalAddedToShop = "added_to_shop"
)

// CustomSticker is a sticker design submitted by a user for moderation
type CustomSticker struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Description    string    `gorm:"size:255" json:"description"`
	ImageKey       string    `gorm:"not null" json:"image_key"`
	ImageURL       string    `gorm:"-" json:"image_url,omitempty"`
	ApprovalStatus string    `gorm:"size:32;not null;index" json:"approval_status"`
	StickerID      *uint     `gorm:"index" json:"sticker_id"` // set once the request is materialized in the shop
	Sticker        *Sticker  `gorm:"foreignKey:StickerID" json:"sticker,omitempty"`
	CreatedSticker bool      `gorm:"not null;default:false" json:"created_sticker"` // false when the request was linked to an existing sticker
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CustomSticker model
func (CustomSticker) TableName() string {
	return "custom_stickers"
}

// IsValidApprovalStatus reports whether status belongs to the approval vocabulary
func IsValidApprovalStatus(status string) bool {
	switch status {
	case ApprovalPending, ApprovalApproved, ApprovalDenied, ApprovalAddedToShop:
		return true
	}
	return false
}
