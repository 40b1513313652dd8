package store

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"classbook-backend/internal/db"
	"classbook-backend/internal/model"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory SQLite database. A single connection is
// used so concurrent transactions serialize the same way a locking store
// would, which is the isolation contract the engine is written against.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func seedUser(t *testing.T, gdb *gorm.DB, id int64, name string) {
	t.Helper()
	user := model.User{
		ID:    id,
		Name:  name,
		Email: fmt.Sprintf("%s-%d@example.com", name, id),
	}
	require.NoError(t, gdb.Create(&user).Error)
}

func seedSession(t *testing.T, gdb *gorm.DB, id int64, rosterCap, waitlistCap int) {
	t.Helper()
	sess := model.Session{
		ID:               id,
		Title:            fmt.Sprintf("Class %d", id),
		Type:             "yoga",
		Campus:           "north",
		Date:             time.Now().Add(24 * time.Hour),
		RosterCapacity:   rosterCap,
		WaitlistCapacity: waitlistCap,
	}
	require.NoError(t, gdb.Create(&sess).Error)
}

func rosterIDs(t *testing.T, gdb *gorm.DB, sessionID int64) []int64 {
	t.Helper()
	return bucketIDs(t, gdb, sessionID, model.BucketRoster)
}

func waitlistIDs(t *testing.T, gdb *gorm.DB, sessionID int64) []int64 {
	t.Helper()
	return bucketIDs(t, gdb, sessionID, model.BucketWaitlist)
}

func bucketIDs(t *testing.T, gdb *gorm.DB, sessionID int64, bucket model.Bucket) []int64 {
	t.Helper()
	var ids []int64
	err := gdb.Model(&model.Registration{}).
		Where("session_id = ? AND bucket = ?", sessionID, bucket).
		Order("position ASC").
		Pluck("user_id", &ids).Error
	require.NoError(t, err)
	return ids
}
