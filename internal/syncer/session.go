package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/logging"
)

// Session owns the auto-sync loop of one signed-in user.
type Session struct {
	d        *Dispatcher
	interval time.Duration
	log      logging.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}
}

func NewSession(d *Dispatcher, interval time.Duration, log logging.Logger) *Session {
	return &Session{d: d, interval: interval, log: log, kick: make(chan struct{}, 1)}
}

// Start rebuilds the queue from the cache and starts draining it every
// interval. Starting a running session does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	n, err := s.d.Rehydrate(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info(ctx, "pending changes restored", "count", n)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.loop(loopCtx, s.done, s.kick)
	s.Trigger()
	return nil
}

// Trigger asks the loop to drain the queue now, e.g. right after going
// online. It never blocks.
func (s *Session) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stop ends the loop, waits for it and clears the queue. It is safe to call
// more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cancel()
	<-s.done
	s.d.queue.Clear()
	s.d.metrics.SetQueueDepth(0)
	s.started = false
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) loop(ctx context.Context, done chan<- struct{}, kick <-chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.d.ProcessQueue(ctx)
		case <-kick:
			s.d.ProcessQueue(ctx)
		case <-ctx.Done():
			return
		}
	}
}
