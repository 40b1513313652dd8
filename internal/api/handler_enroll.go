package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classbook-backend/internal/notification"
)

type enrollmentRequest struct {
	UserID  int64 `json:"user_id" binding:"required"`
	ClassID int64 `json:"class_id" binding:"required"`
}

// Reserve handles PATCH /api/classes/reserve. The user lands on the roster
// when a spot is free, otherwise on the waitlist; when both are full the
// request fails with 409.
func (h *Handler) Reserve(c *gin.Context) {
	var req enrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing user_id or class_id"})
		return
	}

	outcome, err := h.store.Reserve(c.Request.Context(), req.UserID, req.ClassID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

// Cancel handles PATCH /api/classes/cancel. When the cancellation frees a
// roster spot for a waitlisted user, that user's promotion happened in the
// same transaction; the notification is dispatched here, after commit.
func (h *Handler) Cancel(c *gin.Context) {
	var req enrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing user_id or class_id"})
		return
	}

	outcome, err := h.store.Cancel(c.Request.Context(), req.UserID, req.ClassID)
	if err != nil {
		abortWithStoreError(c, err)
		return
	}

	resp := gin.H{"status": "cancelled"}
	if outcome.PromotedUserID != nil {
		resp["promoted_user_id"] = *outcome.PromotedUserID
		if h.workers != nil {
			h.workers.Dispatch(notification.Promotion{
				UserID:    *outcome.PromotedUserID,
				SessionID: req.ClassID,
			})
		}
	}
	c.JSON(http.StatusOK, resp)
}

type attendanceRequest struct {
	ClassID int64   `json:"class_id" binding:"required"`
	Present []int64 `json:"present"`
	Absent  []int64 `json:"absent"`
}

// SubmitAttendance handles POST /api/classes/attendance. Present and absent
// must be disjoint; users registered to the class but listed in neither set
// simply get their registration cleared.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing class_id"})
		return
	}

	if err := h.store.SettleAttendance(c.Request.Context(), req.ClassID, req.Present, req.Absent); err != nil {
		abortWithStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "settled"})
}
