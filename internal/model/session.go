package model

import "time"

// Session represents a single scheduled class with limited capacity.
type Session struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:256;not null" json:"title"`
	Type             string    `gorm:"size:64;index" json:"type"`
	Campus           string    `gorm:"size:128;index" json:"campus"`
	InstructorID     int64     `gorm:"index" json:"instructor_id"`
	Date             time.Time `gorm:"not null;index" json:"date"`
	RosterCapacity   int       `gorm:"not null" json:"roster_capacity"`
	WaitlistCapacity int       `gorm:"not null" json:"waitlist_capacity"`
	// AttendanceSettled flips to true exactly once, when attendance is
	// submitted. It is never reset by the enrollment engine.
	AttendanceSettled bool      `gorm:"not null;default:false" json:"attendance_settled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Associations
	Instructor *User `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
}
