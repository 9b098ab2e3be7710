package model

import "time"

// Draft is the saved state of one unfinished form of one user.
type Draft struct {
	UserID     string    `gorm:"primaryKey;size:64"`
	StorageKey string    `gorm:"primaryKey;size:64"`
	Data       []byte    `gorm:"not null"` // CBOR-encoded form state
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
