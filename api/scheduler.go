/*
scheduler.go - Automated offer-expiry sweeper

PURPOSE:
  Periodically expires pending shift offers whose deadline has passed,
  so stale offers cannot be accepted and shifts reopen for other
  candidates without waiting for a manual sweep call.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates to shift.Service.SweepExpiredOffers, which closes each
    overdue offer independently
  - Per-offer failures are logged and never abort the sweep

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 minute)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewOfferSweeper(handler)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: SweepOffers endpoint (manual sweep)
  - shift/service.go: SweepExpiredOffers
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// OfferSweeper expires overdue shift offers in the background.
type OfferSweeper struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	Log           *logrus.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOfferSweeper creates a sweeper over the handler's shift service.
func NewOfferSweeper(handler *Handler) *OfferSweeper {
	return &OfferSweeper{
		Handler:       handler,
		CheckInterval: time.Minute,
		Enabled:       true,
		Log:           handler.Log,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (s *OfferSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("offer sweeper disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	s.Log.WithField("interval", s.CheckInterval).Info("offer sweeper started")
}

// Stop stops the sweeper.
func (s *OfferSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.Log.Info("offer sweeper stopped")
	}
}

func (s *OfferSweeper) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *OfferSweeper) sweep() {
	ctx := context.Background()

	n, err := s.Handler.Shifts.SweepExpiredOffers(ctx)
	if err != nil {
		s.Log.WithError(err).Error("offer sweep failed")
		return
	}
	if n > 0 {
		s.Log.WithField("expired", n).Info("expired overdue offers")
	}
}
