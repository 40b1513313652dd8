package maintenance

import (
	"context"
	"log"
	"time"

	"classbook-backend/config"
	"classbook-backend/internal/store"
)

// Service resets per-period attendance counters at calendar period
// boundaries. The reset clears aggregate counters only; it never touches a
// session's settled flag or any lifetime history.
type Service struct {
	cfg   *config.Config
	store store.Store
	now   func() time.Time

	lastReset time.Time
}

// NewService creates a new maintenance service.
func NewService(cfg *config.Config, s store.Store) *Service {
	return &Service{
		cfg:   cfg,
		store: s,
		now:   time.Now,
	}
}

// Run checks for a period rollover on an interval until the context is
// cancelled. The check is cheap, so the interval only bounds how late after
// midnight on the first of the month the reset can fire.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Maintenance.Enabled {
		log.Println("Maintenance service is disabled. Not starting.")
		return
	}
	log.Println("Starting maintenance service...")

	s.lastReset = s.now()

	ticker := time.NewTicker(s.cfg.Maintenance.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Maintenance service shutting down.")
			return
		case <-ticker.C:
			s.CheckOnce(ctx)
		}
	}
}

// CheckOnce resets the period counters if a month boundary has passed since
// the last reset.
func (s *Service) CheckOnce(ctx context.Context) {
	now := s.now()
	if !periodRolledOver(s.lastReset, now) {
		return
	}

	affected, err := s.store.ResetPeriodCounters(ctx)
	if err != nil {
		// Leave lastReset untouched so the next tick retries the reset.
		log.Printf("Error resetting period counters: %v", err)
		return
	}

	s.lastReset = now
	log.Printf("Period counter reset complete: %d users affected", affected)
}

// periodRolledOver reports whether a new calendar month started between the
// two instants.
func periodRolledOver(last, now time.Time) bool {
	return now.Year() != last.Year() || now.Month() != last.Month()
}
