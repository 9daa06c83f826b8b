package models

import "time"

// User is a marketplace account. Accounts are never removed, only deactivated.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" bson:"email"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null" bson:"password_hash"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(100)" bson:"first_name"`
	LastName     string    `json:"last_name" gorm:"type:varchar(100)" bson:"last_name"`
	Role         Role      `json:"role" gorm:"type:varchar(16);index;not null" bson:"role"`
	Phone        string    `json:"phone" gorm:"type:varchar(50)" bson:"phone"`
	Address      string    `json:"address" gorm:"type:text" bson:"address"`
	IsActive     bool      `json:"is_active" gorm:"index;not null" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// SellerSummary is the public view of a seller attached to product listings.
type SellerSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// Summary returns the public seller view of u.
func (u *User) Summary() *SellerSummary {
	return &SellerSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}
