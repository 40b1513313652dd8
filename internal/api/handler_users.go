package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetUserEnrollments handles GET /api/users/{user_id}/enrollments, returning
// the user's current reservations and waitlist spots sorted by class date.
func (h *Handler) GetUserEnrollments(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	enrollments, err := h.store.UserEnrollments(c.Request.Context(), userID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

// GetUserStats handles GET /api/users/{user_id}/stats, returning the period
// counters and lifetime reservation history.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	stats, err := h.store.UserStats(c.Request.Context(), userID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListInstructors handles GET /api/instructors.
func (h *Handler) ListInstructors(c *gin.Context) {
	instructors, err := h.store.ListInstructors(c.Request.Context())
	if err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, instructors)
}

type updateCampusRequest struct {
	Email  string `json:"email" binding:"required"`
	Campus string `json:"campus" binding:"required"`
}

// UpdateCampus handles PATCH /api/users/campus.
func (h *Handler) UpdateCampus(c *gin.Context) {
	var req updateCampusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing email or campus"})
		return
	}

	if err := h.store.UpdateUserCampus(c.Request.Context(), req.Email, req.Campus); err != nil {
		abortWithStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campus updated successfully"})
}
