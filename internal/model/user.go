package model

import "time"

// User represents a member who can reserve classes, or an instructor.
type User struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:256;not null" json:"name"`
	Email      string `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Campus     string `gorm:"size:128" json:"campus"`
	Instructor bool   `gorm:"not null;default:false" json:"instructor"`
	// AttendedCount and AbsentCount are period counters. They are mutated
	// only by attendance settlement and by the scheduled counter reset.
	AttendedCount int       `gorm:"not null;default:0" json:"attended_count"`
	AbsentCount   int       `gorm:"not null;default:0" json:"absent_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
