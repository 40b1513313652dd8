package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"classbook-backend/internal/db"
	"classbook-backend/internal/model"
	"classbook-backend/internal/store"
)

var testDBSeq int64

func setupEnrollRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	handler := NewHandler(store.NewGormStore(gormDB), nil, nil)

	r := gin.New()
	r.PATCH("/api/classes/reserve", handler.Reserve)
	r.PATCH("/api/classes/cancel", handler.Cancel)
	r.POST("/api/classes/attendance", handler.SubmitAttendance)
	return r, gormDB
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func seedClass(t *testing.T, gormDB *gorm.DB, id int64, rosterCap, waitlistCap int) {
	t.Helper()
	require.NoError(t, gormDB.Create(&model.Session{
		ID:               id,
		Title:            fmt.Sprintf("Class %d", id),
		Date:             time.Now().Add(24 * time.Hour),
		RosterCapacity:   rosterCap,
		WaitlistCapacity: waitlistCap,
	}).Error)
}

func seedMember(t *testing.T, gormDB *gorm.DB, id int64) {
	t.Helper()
	require.NoError(t, gormDB.Create(&model.User{
		ID:    id,
		Name:  fmt.Sprintf("user%d", id),
		Email: fmt.Sprintf("user%d@example.com", id),
	}).Error)
}

func TestReserveHandler_StatusTransitions(t *testing.T) {
	router, gormDB := setupEnrollRouter(t)

	seedClass(t, gormDB, 1, 1, 1)
	for _, uid := range []int64{10, 11, 12} {
		seedMember(t, gormDB, uid)
	}

	w := doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10, "class_id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"admitted"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 11, "class_id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"waitlisted"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 12, "class_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Duplicate registration
	w = doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10, "class_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown entities
	w = doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 999, "class_id": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Missing body fields
	w = doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelHandler_ReportsPromotion(t *testing.T) {
	router, gormDB := setupEnrollRouter(t)

	seedClass(t, gormDB, 1, 1, 1)
	seedMember(t, gormDB, 10)
	seedMember(t, gormDB, 11)

	doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10, "class_id": 1})
	doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 11, "class_id": 1})

	w := doJSON(t, router, http.MethodPatch, "/api/classes/cancel", gin.H{"user_id": 10, "class_id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cancelled","promoted_user_id":11}`, w.Body.String())

	// The promoted user cancels; nobody is waiting anymore.
	w = doJSON(t, router, http.MethodPatch, "/api/classes/cancel", gin.H{"user_id": 11, "class_id": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cancelled"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPatch, "/api/classes/cancel", gin.H{"user_id": 10, "class_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAttendanceHandler(t *testing.T) {
	router, gormDB := setupEnrollRouter(t)

	seedClass(t, gormDB, 1, 2, 0)
	seedMember(t, gormDB, 10)
	seedMember(t, gormDB, 11)

	doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 10, "class_id": 1})
	doJSON(t, router, http.MethodPatch, "/api/classes/reserve", gin.H{"user_id": 11, "class_id": 1})

	w := doJSON(t, router, http.MethodPost, "/api/classes/attendance", gin.H{
		"class_id": 1, "present": []int64{10}, "absent": []int64{11},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"settled"}`, w.Body.String())

	// Re-submission is rejected, not double-counted.
	w = doJSON(t, router, http.MethodPost, "/api/classes/attendance", gin.H{
		"class_id": 1, "present": []int64{10}, "absent": []int64{11},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Overlapping partition
	seedClass(t, gormDB, 2, 2, 0)
	w = doJSON(t, router, http.MethodPost, "/api/classes/attendance", gin.H{
		"class_id": 2, "present": []int64{10}, "absent": []int64{10},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
