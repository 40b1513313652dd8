package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"classbook-backend/internal/notification"
	"classbook-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	workers *notification.WorkerPool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, workers *notification.WorkerPool) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		workers: workers,
	}
}

// abortWithStoreError maps a store error onto an HTTP status and writes the
// JSON error response.
func abortWithStoreError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusForError(err), gin.H{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidPartition):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAlreadyRegistered),
		errors.Is(err, store.ErrNotRegistered),
		errors.Is(err, store.ErrClassFull),
		errors.Is(err, store.ErrAttendanceSettled):
		return http.StatusConflict
	case errors.Is(err, store.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
