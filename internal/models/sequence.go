package models

// Sequence is a per-name, per-day counter for human-readable numbers.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:20"`
	Day   string `gorm:"primaryKey;size:8"` // YYYYMMDD
	Value int64  `gorm:"not null;default:0"`
}
