package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"classbook-backend/internal/model"
)

// Reserve admits the user to the session's roster if a spot is free, falls
// back to the waitlist, and fails with ErrClassFull when both are at
// capacity. The capacity check and the membership write happen under the
// session row lock, so concurrent calls behave as if serialized.
func (s *gormStore) Reserve(ctx context.Context, userID, sessionID int64) (ReserveOutcome, error) {
	var outcome ReserveOutcome

	err := s.inTransaction(ctx, func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}

		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return err
		}

		var held int64
		if err := tx.Model(&model.Registration{}).
			Where("session_id = ? AND user_id = ?", sessionID, userID).
			Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return fmt.Errorf("user %d in session %d: %w", userID, sessionID, ErrAlreadyRegistered)
		}

		rosterSize, waitlistSize, err := bucketSizes(tx, sessionID)
		if err != nil {
			return err
		}

		pos, err := nextPosition(tx, sessionID)
		if err != nil {
			return err
		}

		switch {
		case rosterSize < int64(sess.RosterCapacity):
			reg := model.Registration{
				SessionID: sessionID,
				UserID:    userID,
				Bucket:    model.BucketRoster,
				Position:  pos,
			}
			if err := tx.Create(&reg).Error; err != nil {
				return fmt.Errorf("failed to create roster registration: %w", err)
			}
			if err := tx.Create(&model.SignupRecord{SessionID: sessionID, UserID: userID}).Error; err != nil {
				return fmt.Errorf("failed to append signup record: %w", err)
			}
			outcome = ReserveAdmitted

		case waitlistSize < int64(sess.WaitlistCapacity):
			reg := model.Registration{
				SessionID: sessionID,
				UserID:    userID,
				Bucket:    model.BucketWaitlist,
				Position:  pos,
			}
			if err := tx.Create(&reg).Error; err != nil {
				return fmt.Errorf("failed to create waitlist registration: %w", err)
			}
			outcome = ReserveWaitlisted

		default:
			return fmt.Errorf("session %d: %w", sessionID, ErrClassFull)
		}
		return nil
	})

	return outcome, err
}

// Cancel removes the user's roster or waitlist spot. When a roster spot is
// freed and the waitlist is non-empty, the waitlist head moves into the
// roster inside the same transaction, so a vacant roster slot is never
// visible while someone is waiting.
func (s *gormStore) Cancel(ctx context.Context, userID, sessionID int64) (CancelOutcome, error) {
	var outcome CancelOutcome

	err := s.inTransaction(ctx, func(tx *gorm.DB) error {
		outcome = CancelOutcome{}

		if _, err := lockSession(tx, sessionID); err != nil {
			return err
		}

		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, ErrNotFound)
			}
			return err
		}

		var reg model.Registration
		err := tx.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d in session %d: %w", userID, sessionID, ErrNotRegistered)
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&reg).Error; err != nil {
			return fmt.Errorf("failed to delete registration: %w", err)
		}

		if reg.Bucket == model.BucketWaitlist {
			// Leaving the waitlist frees no roster slot; nobody is promoted.
			return nil
		}

		// Retire the departing user's live signup record.
		var signup model.SignupRecord
		err = tx.Where("session_id = ? AND user_id = ?", sessionID, userID).
			Order("id DESC").First(&signup).Error
		if err == nil {
			if err := tx.Delete(&signup).Error; err != nil {
				return fmt.Errorf("failed to retire signup record: %w", err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Promote the waitlist head, if any, into the freed roster slot.
		var head model.Registration
		err = tx.Where("session_id = ? AND bucket = ?", sessionID, model.BucketWaitlist).
			Order("position ASC").First(&head).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		pos, err := nextPosition(tx, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Model(&head).Updates(map[string]any{
			"bucket":   model.BucketRoster,
			"position": pos,
		}).Error; err != nil {
			return fmt.Errorf("failed to promote user %d: %w", head.UserID, err)
		}
		if err := tx.Create(&model.SignupRecord{SessionID: sessionID, UserID: head.UserID}).Error; err != nil {
			return fmt.Errorf("failed to append signup record for promoted user %d: %w", head.UserID, err)
		}

		promoted := head.UserID
		outcome.PromotedUserID = &promoted
		return nil
	})

	return outcome, err
}

func bucketSizes(tx *gorm.DB, sessionID int64) (roster, waitlist int64, err error) {
	type row struct {
		Bucket model.Bucket
		N      int64
	}
	var rows []row
	err = tx.Model(&model.Registration{}).
		Where("session_id = ?", sessionID).
		Select("bucket, COUNT(*) as n").
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Bucket {
		case model.BucketRoster:
			roster = r.N
		case model.BucketWaitlist:
			waitlist = r.N
		}
	}
	return roster, waitlist, nil
}
