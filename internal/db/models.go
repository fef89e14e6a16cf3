package db

import (
	"time"

	"gorm.io/datatypes"
)

// DoseLog is one stored dose event.
type DoseLog struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	// ExpiresAt is the timestamp after which this log is eligible for deletion by the
	// retention worker. A nil value means the log does not expire.
	ExpiresAt *time.Time `gorm:"index"`

	UserID       string `gorm:"index;not null"`
	MedicationID string `gorm:"index;not null"`

	ScheduledTime time.Time `gorm:"index;not null"`
	TakenTime     *time.Time
	Status        string `gorm:"not null"`

	// Explicit clock position when the client sent one.
	HourOfDay *int
	DayOfWeek *int

	// Attributes holds free-form client data such as notes.
	Attributes datatypes.JSONMap `gorm:"type:json"`
}

// ReportSnapshot is a report assembled by the snapshot worker. UserID is empty for the
// all-users report.
type ReportSnapshot struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`

	UserID     string `gorm:"index"`
	EventCount int64  `gorm:"not null"`

	// OverallRate duplicates payload.overall_adherence.adherence_rate for cheap listing.
	OverallRate float64 `gorm:"not null"`

	Payload datatypes.JSON `gorm:"type:json"`
}
