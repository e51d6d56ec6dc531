package models

import (
	"time"

	"gorm.io/gorm"
)

// LocalSubjectPrefix marks token subjects issued by this API rather than an external provider
const LocalSubjectPrefix = "local|"

// User represents a shop customer or administrator
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Subject      string         `gorm:"uniqueIndex;not null" json:"-"` // token 'sub' claim
	Username     string         `gorm:"uniqueIndex;size:25;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:150;not null" json:"email"`
	PasswordHash string         `gorm:"size:256" json:"-"` // empty for externally authenticated users
	IsAdmin      bool           `gorm:"not null" json:"is_admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// LocalSubject returns the token subject used for a locally registered username
func LocalSubject(username string) string {
	return LocalSubjectPrefix + username
}
