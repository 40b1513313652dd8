package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"classbook-backend/config"
	"classbook-backend/internal/mw"
	"classbook-backend/internal/notification"
	"classbook-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, webpushOptions *webpush.Options, workers *notification.WorkerPool) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, workers)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Session query surface
		api.GET("/classes", caching, handler.ListClasses)
		api.GET("/classes/filtered", caching, handler.FilterClasses)
		api.GET("/classes/:class_id/roster", handler.GetClassRoster)

		// User query surface
		api.GET("/users/:user_id/enrollments", handler.GetUserEnrollments)
		api.GET("/users/:user_id/stats", handler.GetUserStats)
		api.GET("/instructors", caching, handler.ListInstructors)
		api.PATCH("/users/campus", handler.UpdateCampus)

		// Enrollment engine
		api.PATCH("/classes/reserve", handler.Reserve)
		api.PATCH("/classes/cancel", handler.Cancel)
		api.POST("/classes/attendance", handler.SubmitAttendance)

		// Push subscriptions
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
