package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"classbook-backend/config"
	"classbook-backend/internal/api"
	"classbook-backend/internal/db"
	"classbook-backend/internal/model"
	"classbook-backend/internal/store"
)

// TestEnrollmentLifecycle walks a class through its whole life over the HTTP
// surface: members reserving until the roster and waitlist fill up, a
// cancellation promoting the waitlist head, and attendance settlement folding
// the outcome into user statistics.
func TestEnrollmentLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, db.Migrate(testDB))

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1

	appStore := store.NewGormStore(testDB)
	router := api.NewRouter(cfg, appStore, nil, nil)

	// Provisioning is out of band: seed the instructor, members and the class.
	require.NoError(t, testDB.Create(&model.User{ID: 1, Name: "Ines", Email: "ines@example.com", Instructor: true}).Error)
	for i := int64(10); i <= 12; i++ {
		require.NoError(t, testDB.Create(&model.User{
			ID:    i,
			Name:  fmt.Sprintf("member%d", i),
			Email: fmt.Sprintf("member%d@example.com", i),
		}).Error)
	}
	require.NoError(t, testDB.Create(&model.Session{
		ID:               1,
		Title:            "Evening Yoga",
		Type:             "yoga",
		Campus:           "north",
		InstructorID:     1,
		Date:             time.Now().Add(24 * time.Hour),
		RosterCapacity:   1,
		WaitlistCapacity: 1,
	}).Error)

	call := func(method, path string, body any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		w := httptest.NewRecorder()
		req, err := http.NewRequest(method, path, reader)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Fill roster and waitlist", func(t *testing.T) {
		w := call(http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10, "class_id": 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"admitted"}`, w.Body.String())

		w = call(http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 11, "class_id": 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"waitlisted"}`, w.Body.String())

		w = call(http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 12, "class_id": 1})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Waitlisted member sees the class in enrollments", func(t *testing.T) {
		w := call(http.MethodGet, "/api/users/11/enrollments", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var enrollments store.Enrollments
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enrollments))
		assert.Empty(t, enrollments.Reservations)
		require.Len(t, enrollments.Waitlists, 1)
		assert.Equal(t, "Evening Yoga", enrollments.Waitlists[0].Title)
	})

	t.Run("Cancellation promotes the waitlist head", func(t *testing.T) {
		w := call(http.MethodPatch, "/api/classes/cancel", gin.H{"user_id": 10, "class_id": 1})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"cancelled","promoted_user_id":11}`, w.Body.String())

		w = call(http.MethodGet, "/api/classes/1/roster", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var roster []model.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
		require.Len(t, roster, 1)
		assert.Equal(t, int64(11), roster[0].ID)
	})

	t.Run("Settlement updates stats and clears references", func(t *testing.T) {
		w := call(http.MethodPost, "/api/classes/attendance", gin.H{
			"class_id": 1, "present": []int64{11}, "absent": []int64{},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"settled"}`, w.Body.String())

		w = call(http.MethodGet, "/api/users/11/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var stats store.UserStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.AttendedCount)
		assert.Equal(t, []int64{1}, stats.History)

		w = call(http.MethodGet, "/api/users/11/enrollments", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var enrollments store.Enrollments
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enrollments))
		assert.Empty(t, enrollments.Reservations, "settlement cleared the active reservation")
		assert.Empty(t, enrollments.Waitlists)

		// The class can no longer be settled or joined.
		w = call(http.MethodPost, "/api/classes/attendance", gin.H{
			"class_id": 1, "present": []int64{11}, "absent": []int64{},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Instructor lookup", func(t *testing.T) {
		w := call(http.MethodGet, "/api/instructors", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var instructors []model.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instructors))
		require.Len(t, instructors, 1)
		assert.Equal(t, "Ines", instructors[0].Name)
	})
}
