package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"classbook-backend/internal/model"
)

// ListSessions returns every session sorted by date ascending.
func (s *gormStore) ListSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := s.db.WithContext(ctx).Order("date ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// FilterSessions returns sessions matching the filter. A date filter matches
// the whole calendar day in the server's location.
func (s *gormStore) FilterSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	q := s.db.WithContext(ctx).Model(&model.Session{})

	if filter.Date != nil {
		start := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		end := start.AddDate(0, 0, 1)
		q = q.Where("date >= ? AND date < ?", start, end)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if len(filter.Campuses) > 0 {
		q = q.Where("campus IN ?", filter.Campuses)
	}
	if len(filter.InstructorIDs) > 0 {
		q = q.Where("instructor_id IN ?", filter.InstructorIDs)
	}

	var sessions []model.Session
	if err := q.Order("date ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionRoster returns the admitted users of a session in admission order.
func (s *gormStore) SessionRoster(ctx context.Context, sessionID int64) ([]model.User, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", sessionID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}

	var users []model.User
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN registrations ON registrations.user_id = users.id").
		Where("registrations.session_id = ? AND registrations.bucket = ?", sessionID, model.BucketRoster).
		Order("registrations.position ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserEnrollments returns the sessions a user currently holds a roster or
// waitlist spot in, each list sorted by session date.
func (s *gormStore) UserEnrollments(ctx context.Context, userID int64) (*Enrollments, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	sessionsIn := func(bucket model.Bucket) ([]model.Session, error) {
		var sessions []model.Session
		err := s.db.WithContext(ctx).Model(&model.Session{}).
			Joins("JOIN registrations ON registrations.session_id = sessions.id").
			Where("registrations.user_id = ? AND registrations.bucket = ?", userID, bucket).
			Order("sessions.date ASC").
			Find(&sessions).Error
		return sessions, err
	}

	reservations, err := sessionsIn(model.BucketRoster)
	if err != nil {
		return nil, err
	}
	waitlists, err := sessionsIn(model.BucketWaitlist)
	if err != nil {
		return nil, err
	}
	return &Enrollments{Reservations: reservations, Waitlists: waitlists}, nil
}

// UserStats returns a user's period counters and lifetime reservation history.
func (s *gormStore) UserStats(ctx context.Context, userID int64) (*UserStats, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	var history []int64
	err := s.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("session_id", &history).Error
	if err != nil {
		return nil, err
	}

	return &UserStats{
		AttendedCount: user.AttendedCount,
		AbsentCount:   user.AbsentCount,
		History:       history,
	}, nil
}

// ListInstructors returns all users flagged as instructors.
func (s *gormStore) ListInstructors(ctx context.Context) ([]model.User, error) {
	var instructors []model.User
	err := s.db.WithContext(ctx).
		Where("instructor = ?", true).
		Order("name ASC").
		Find(&instructors).Error
	if err != nil {
		return nil, err
	}
	return instructors, nil
}

// UpdateUserCampus sets the campus of the user identified by email.
func (s *gormStore) UpdateUserCampus(ctx context.Context, email, campus string) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", email).
		Update("campus", campus)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return nil
}

// ResetPeriodCounters zeroes every user's attended counter. Invoked by the
// scheduled maintenance job at period boundaries; it never touches session
// settled flags or lifetime history.
func (s *gormStore) ResetPeriodCounters(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("attended_count <> 0").
		UpdateColumn("attended_count", 0)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *gormStore) requireUser(ctx context.Context, userID int64) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}
