package models

import (
	"time"
)

// Attempt sources.
const (
	SourceAPI   = "api"
	SourceBatch = "batch"
	SourceCLI   = "cli"
)

// Attempt records one decode of a CAPTCHA image, successful or not.
type Attempt struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	// ClientID is nil for batch runs.
	ClientID  *uint  `gorm:"index"`
	Source    string `gorm:"size:16;not null;index"`
	FileName  string `gorm:"size:255;not null"`
	StorePath string `gorm:"column:store_path;size:512"`
	// Value is the decoded number, 0 on failure.
	Value   int64
	Digits  string `gorm:"size:32"`
	Success bool   `gorm:"not null;index"`
	// Reason is a short failure class (load, crop, unrecognized_signature, no_digits, ...).
	Reason string `gorm:"size:64"`
	// Signature holds the offending value when Reason is unrecognized_signature.
	Signature  *int64
	DurationMs int64
}
