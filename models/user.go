package models

import (
	"time"
)

// User is an identity that can authenticate against the API.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"_id"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `gorm:"index" json:"-"`
	Username       string     `gorm:"size:255;not null;unique" json:"username"`
	Email          string     `gorm:"size:255" json:"email"`
	HashedPassword []byte     `gorm:"not null" json:"-"`
	RoleID         *uint      `gorm:"index" json:"-"`
	Role           Role       `gorm:"foreignKey:RoleID;references:ID" json:"-"`
}

// Creator is the subset of a User shown on records it created.
type Creator struct {
	ID       uint   `gorm:"primaryKey" json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TableName points the Creator projection at the users table.
func (Creator) TableName() string { return "users" }
