package connectivity

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Watcher polls a Checker in the background and serves the last answer, so
// hot paths do not pay a round trip. It starts offline.
type Watcher struct {
	checker  Checker
	interval time.Duration
	log      logging.Logger

	online   atomic.Bool
	mu       sync.Mutex
	onChange []func(Mode)
}

func NewWatcher(checker Checker, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{checker: checker, interval: interval, log: log}
}

// OnChange registers fn to run after every mode switch.
func (w *Watcher) OnChange(fn func(Mode)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

func (w *Watcher) Online(context.Context) bool { return w.online.Load() }

func (w *Watcher) Mode() Mode {
	if w.online.Load() {
		return ModeOnline
	}
	return ModeOffline
}

// Check probes once and records the result.
func (w *Watcher) Check(ctx context.Context) Mode {
	w.set(ctx, w.checker.Online(ctx))
	return w.Mode()
}

// Run probes immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) set(ctx context.Context, online bool) {
	if w.online.Swap(online) == online {
		return
	}
	mode := w.Mode()
	w.log.Info(ctx, "switched connectivity mode", "mode", string(mode))

	w.mu.Lock()
	fns := slices.Clone(w.onChange)
	w.mu.Unlock()
	for _, fn := range fns {
		fn(mode)
	}
}
