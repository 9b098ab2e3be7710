package model

import "time"

// Submission records a form accepted by the university backend.
type Submission struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"index;size:64;not null"`
	Variant     string    `gorm:"size:32;not null"`
	Dormitory   string    `gorm:"size:64"`
	RoomNumber  string    `gorm:"size:16"`
	SubmittedAt time.Time `gorm:"not null"`
}
