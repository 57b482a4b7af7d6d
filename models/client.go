package models

import (
	"time"
)

// Client is an API consumer allowed to submit CAPTCHAs to the HTTP service.
type Client struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string `gorm:"size:255;not null;unique"`
	HashedSecret []byte `gorm:"not null"`
	// Active clients may obtain tokens. Disable instead of deleting so attempts keep their owner.
	Active   bool  `gorm:"default:true;not null"`
	RoleID   *uint `gorm:"index"`
	Role     Role  `gorm:"foreignKey:RoleID;references:ID"`
	Attempts []Attempt
}
