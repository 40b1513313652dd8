package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"classbook-backend/internal/store"
)

// ListClasses handles GET /api/classes, returning all classes sorted by date.
func (h *Handler) ListClasses(c *gin.Context) {
	sessions, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// FilterClasses handles GET /api/classes/filtered with optional date, types,
// campuses and instructors query parameters. List parameters are
// comma-separated, matching the original client contract.
func (h *Handler) FilterClasses(c *gin.Context) {
	var filter store.SessionFilter

	if dateParam := c.Query("date"); dateParam != "" {
		date, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'date' format. Use YYYY-MM-DD."})
			return
		}
		filter.Date = &date
	}
	if types := c.Query("types"); types != "" {
		filter.Types = strings.Split(types, ",")
	}
	if campuses := c.Query("campuses"); campuses != "" {
		filter.Campuses = strings.Split(campuses, ",")
	}
	if instructors := c.Query("instructors"); instructors != "" {
		for _, raw := range strings.Split(instructors, ",") {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid instructor ID"})
				return
			}
			filter.InstructorIDs = append(filter.InstructorIDs, id)
		}
	}

	sessions, err := h.store.FilterSessions(c.Request.Context(), filter)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetClassRoster handles GET /api/classes/{class_id}/roster, returning the
// admitted users in admission order.
func (h *Handler) GetClassRoster(c *gin.Context) {
	classID, err := strconv.ParseInt(c.Param("class_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid class ID"})
		return
	}

	roster, err := h.store.SessionRoster(c.Request.Context(), classID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}
