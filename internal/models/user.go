package models

import "gorm.io/gorm"

// User represents a registered account.
type User struct {
	gorm.Model
	Username        string `gorm:"uniqueIndex;not null" json:"username"`
	Email           string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string `gorm:"not null" json:"-"`
	ProfileImageURL string `json:"profile_image_url"`
	IsAdmin         bool   `gorm:"default:false" json:"is_admin"`
}
