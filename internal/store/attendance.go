package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classbook-backend/internal/model"
)

// SettleAttendance finalizes a session's attendance outcome. Present users
// get their attended counter bumped and a lifetime history entry; absent
// users get their absence counter bumped; every remaining registration for
// the session is cleared, including users in neither set, so no dangling
// references survive the session. The settled flag flips exactly once:
// re-submission fails with ErrAttendanceSettled instead of double-counting.
func (s *gormStore) SettleAttendance(ctx context.Context, sessionID int64, present, absent []int64) error {
	presentSet, err := toIDSet(present)
	if err != nil {
		return err
	}
	absentSet, err := toIDSet(absent)
	if err != nil {
		return err
	}
	for id := range absentSet {
		if _, ok := presentSet[id]; ok {
			return fmt.Errorf("user %d in both present and absent: %w", id, ErrInvalidPartition)
		}
	}

	return s.inTransaction(ctx, func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.AttendanceSettled {
			return fmt.Errorf("session %d: %w", sessionID, ErrAttendanceSettled)
		}

		all := make([]int64, 0, len(presentSet)+len(absentSet))
		for id := range presentSet {
			all = append(all, id)
		}
		for id := range absentSet {
			all = append(all, id)
		}
		if len(all) > 0 {
			var known int64
			if err := tx.Model(&model.User{}).Where("id IN ?", all).Count(&known).Error; err != nil {
				return err
			}
			if known != int64(len(all)) {
				return fmt.Errorf("attendance for session %d references unknown users: %w", sessionID, ErrInvalidPartition)
			}
		}

		for id := range presentSet {
			if err := tx.Model(&model.User{}).Where("id = ?", id).
				UpdateColumn("attended_count", gorm.Expr("attended_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to credit attendance for user %d: %w", id, err)
			}
			record := model.AttendanceRecord{UserID: id, SessionID: sessionID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
				return fmt.Errorf("failed to append history for user %d: %w", id, err)
			}
		}

		for id := range absentSet {
			if err := tx.Model(&model.User{}).Where("id = ?", id).
				UpdateColumn("absent_count", gorm.Expr("absent_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to record absence for user %d: %w", id, err)
			}
		}

		// Clear every remaining reference to the session, classified or not.
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Registration{}).Error; err != nil {
			return fmt.Errorf("failed to clear registrations for session %d: %w", sessionID, err)
		}

		if err := tx.Model(sess).UpdateColumn("attendance_settled", true).Error; err != nil {
			return fmt.Errorf("failed to mark session %d settled: %w", sessionID, err)
		}
		return nil
	})
}

// toIDSet converts an id slice into a set, rejecting duplicates so a user
// cannot be counted twice within the same partition.
func toIDSet(ids []int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return nil, fmt.Errorf("user %d listed twice: %w", id, ErrInvalidPartition)
		}
		set[id] = struct{}{}
	}
	return set, nil
}
