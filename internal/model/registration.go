package model

import "time"

// Bucket identifies which list of a session a registration belongs to.
type Bucket string

const (
	BucketRoster   Bucket = "roster"
	BucketWaitlist Bucket = "waitlist"
)

// Registration is a user's current membership in a session's roster or
// waitlist. The unique index on (session_id, user_id) guarantees a user holds
// at most one spot per session across both buckets. Position is a per-session
// monotonic sequence: roster rows ordered by Position give admission order,
// waitlist rows ordered by Position give strict FIFO promotion order.
type Registration struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"not null;uniqueIndex:idx_registration_session_user" json:"session_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_registration_session_user;index" json:"user_id"`
	Bucket    Bucket    `gorm:"size:16;not null" json:"bucket"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`

	// Associations
	Session *Session `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// SignupRecord is the append-only admission log of a session: one row per
// roster admission, including promotions from the waitlist. A row is removed
// when the admitted user cancels, so duplicates for the same user can appear
// over time but at most one row is live per held roster spot.
type SignupRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"not null;index" json:"session_id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord is a user's lifetime reservation history: one row appended
// per session the user was marked present at. Settlement never writes two
// rows for the same (user, session) pair.
type AttendanceRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_attendance_user_session" json:"user_id"`
	SessionID int64     `gorm:"not null;uniqueIndex:idx_attendance_user_session" json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}
