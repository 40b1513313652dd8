package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"classbook-backend/internal/model"
)

// Promotion is a job for the pool: a user was moved off a session's waitlist
// into the roster and should be told about it.
type Promotion struct {
	UserID    int64
	SessionID int64
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers delivering promotion notifications.
type WorkerPool struct {
	size    int
	jobs    chan Promotion
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Promotion, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case promo := <-wp.jobs:
			log.Printf("Worker %d notifying user %d about session %d", id, promo.UserID, promo.SessionID)
			wp.notifyPromotion(ctx, promo)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool without blocking the caller. A
// dropped notification is acceptable; a blocked cancellation handler is not.
func (wp *WorkerPool) Dispatch(promo Promotion) {
	select {
	case wp.jobs <- promo:
	default:
		log.Printf("Notification queue full, dropping promotion notice for user %d", promo.UserID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Promotion {
	return wp.jobs
}

// notifyPromotion fetches the promoted user's subscriptions and pushes the
// "spot opened up" message to each of them.
func (wp *WorkerPool) notifyPromotion(ctx context.Context, promo Promotion) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("user_id = ?", promo.UserID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for user %d: %v", promo.UserID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	var session model.Session
	sessionLabel := fmt.Sprintf("class %d", promo.SessionID)
	if err := wp.db.WithContext(ctx).
		Select("title").
		First(&session, promo.SessionID).Error; err != nil {
		log.Printf("Error fetching session %d: %v", promo.SessionID, err)
	} else if session.Title != "" {
		sessionLabel = session.Title
	}

	message := fmt.Sprintf("A spot opened up in %s, you're off the waitlist!", sessionLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
