package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classbook-backend/internal/model"
)

// ReserveOutcome says where a successful reservation landed.
type ReserveOutcome string

const (
	ReserveAdmitted   ReserveOutcome = "admitted"
	ReserveWaitlisted ReserveOutcome = "waitlisted"
)

// CancelOutcome reports the result of a cancellation. PromotedUserID is set
// when removing a roster member pulled the waitlist head into the roster.
type CancelOutcome struct {
	PromotedUserID *int64
}

// SessionFilter narrows FilterSessions. Zero-value fields are ignored.
type SessionFilter struct {
	Date          *time.Time
	Types         []string
	Campuses      []string
	InstructorIDs []int64
}

// Enrollments is a user's current reservations and waitlist spots, each
// sorted by session date.
type Enrollments struct {
	Reservations []model.Session `json:"reservations"`
	Waitlists    []model.Session `json:"waitlists"`
}

// UserStats is a user's attendance counters plus lifetime reservation history.
type UserStats struct {
	AttendedCount int     `json:"attended_count"`
	AbsentCount   int     `json:"absent_count"`
	History       []int64 `json:"history"`
}

// Store defines all database operations of the enrollment backend.
type Store interface {
	// DB exposes the underlying handle for glue that manages its own queries
	// (notification worker, subscription handlers).
	DB() *gorm.DB

	// Enrollment engine. Each call is one atomic transaction.
	Reserve(ctx context.Context, userID, sessionID int64) (ReserveOutcome, error)
	Cancel(ctx context.Context, userID, sessionID int64) (CancelOutcome, error)
	SettleAttendance(ctx context.Context, sessionID int64, present, absent []int64) error

	// Read projections.
	ListSessions(ctx context.Context) ([]model.Session, error)
	FilterSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	SessionRoster(ctx context.Context, sessionID int64) ([]model.User, error)
	UserEnrollments(ctx context.Context, userID int64) (*Enrollments, error)
	UserStats(ctx context.Context, userID int64) (*UserStats, error)
	ListInstructors(ctx context.Context) ([]model.User, error)

	// Maintenance and glue mutations.
	UpdateUserCampus(ctx context.Context, email, campus string) error
	ResetPeriodCounters(ctx context.Context) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// maxTxAttempts bounds retries of transactions that fail with transient
// write conflicts before the error is surfaced as ErrConflict.
const maxTxAttempts = 3

// inTransaction runs fn inside a transaction, retrying transient conflicts.
// On every exit path the transaction has been committed or rolled back; a
// returned error always means nothing was persisted by the failing attempt.
func (s *gormStore) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isTransient(err) {
			return err
		}
		log.Printf("transaction attempt %d/%d hit a transient conflict: %v", attempt, maxTxAttempts, err)
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

// isTransient reports whether err is a write conflict worth retrying:
// serialization failures and deadlocks on postgres, lock contention on sqlite.
func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// lockSession loads the session row with an exclusive row lock, serializing
// concurrent capacity decisions for the same session. SQLite has no FOR
// UPDATE; its single-writer model already serializes the transaction.
func lockSession(tx *gorm.DB, sessionID int64) (*model.Session, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var sess model.Session
	if err := q.First(&sess, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	return &sess, nil
}

// nextPosition returns the next value of the session's shared position
// sequence. Roster and waitlist rows draw from the same sequence, so a
// promoted user always lands after every current roster member.
func nextPosition(tx *gorm.DB, sessionID int64) (int, error) {
	var max int
	err := tx.Model(&model.Registration{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
