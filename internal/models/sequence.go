package models

// SequenceCounter is an atomic per-day counter row, one per (scope, day).
type SequenceCounter struct {
	Scope string `gorm:"primaryKey;size:20"`
	Day   string `gorm:"primaryKey;size:8"` // YYYYMMDD
	Value int    `gorm:"not null"`
}
