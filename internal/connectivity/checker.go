// Package connectivity answers the one question the sync layer asks before
// every remote call: is the backend reachable right now.
package connectivity

import (
	"context"
	"time"
)

// Checker reports backend reachability at call time.
type Checker interface {
	Online(ctx context.Context) bool
}

// Pinger is anything with a cheap round trip, such as the remote repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker is online when Ping succeeds within Timeout.
type PingChecker struct {
	Pinger  Pinger
	Timeout time.Duration
}

func (c PingChecker) Online(ctx context.Context) bool {
	if c.Pinger == nil {
		return false
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Pinger.Ping(ctx) == nil
}

// Static always returns the same answer. Used for forced offline mode.
type Static bool

func (s Static) Online(context.Context) bool { return bool(s) }

// Func adapts a plain function.
type Func func(ctx context.Context) bool

func (f Func) Online(ctx context.Context) bool { return f(ctx) }
