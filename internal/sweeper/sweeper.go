package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Expirer marks past, unbooked slots as expired.
type Expirer interface {
	MarkExpiredSlots(ctx context.Context) (int64, error)
}

// Config holds configuration for the expiry sweeper.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration
	// RunOnStart sweeps once as soon as the loop starts.
	RunOnStart bool
}

// DefaultConfig sweeps hourly.
func DefaultConfig() Config {
	return Config{Interval: time.Hour}
}

// Sweeper periodically expires stale AVAILABLE slots.
type Sweeper struct {
	config  Config
	expirer Expirer
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	resetCh chan time.Duration
	lastRun time.Time
}

func New(config Config, expirer Expirer, logger *zerolog.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Sweeper{
		config:  config,
		expirer: expirer,
		resetCh: make(chan time.Duration, 1),
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is done or Stop is called. It blocks.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	interval := s.config.Interval
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Dur("interval", interval).Msg("expiry sweeper started")

	if s.config.RunOnStart {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped by context")
			return
		case <-stopCh:
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case d := <-s.resetCh:
			ticker.Reset(d)
			s.logger.Info().Dur("interval", d).Msg("sweep interval changed")
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SetInterval changes the time between sweeps. A running loop picks it up
// without waiting for its current tick.
func (s *Sweeper) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.Interval == d {
		return
	}
	s.config.Interval = d
	select {
	case <-s.resetCh:
	default:
	}
	s.resetCh <- d
}

// Interval returns the current time between sweeps.
func (s *Sweeper) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Interval
}

// Stop stops the loop started by Start.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

// RunNow forces an immediate sweep and returns the number of expired slots.
func (s *Sweeper) RunNow(ctx context.Context) (int64, error) {
	s.logger.Info().Msg("manual expiry sweep triggered")
	return s.sweep(ctx)
}

// IsRunning returns whether the loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns when the last sweep finished, zero if none has.
func (s *Sweeper) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Sweeper) sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := s.expirer.MarkExpiredSlots(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to expire slots")
		return 0, err
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	if count > 0 {
		s.logger.Info().Int64("count", count).Dur("duration", time.Since(start)).Msg("expired slots swept")
	}
	return count, nil
}
