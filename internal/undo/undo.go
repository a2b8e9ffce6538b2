// Package undo keeps the short, session scoped list of reversible actions
// offered by the interactive shell.
package undo

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/instalatrack/internal/common"
)

// DefaultLimit is how many actions are remembered.
const DefaultLimit = 10

// Func reverts one action.
type Func func(ctx context.Context) error

// Chain returns a Func running fns in reverse order, stopping at the first
// error. Nil entries are skipped.
func Chain(fns ...Func) Func {
	return func(ctx context.Context) error {
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] == nil {
				continue
			}
			if err := fns[i](ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

type Action struct {
	Label string
	Undo  Func
}

// History is a bounded stack: pushing past the limit drops the oldest
// action.
type History struct {
	mu      sync.Mutex
	limit   int
	actions []Action
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

func (h *History) Push(label string, fn Func) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, Action{Label: label, Undo: fn})
	if over := len(h.actions) - h.limit; over > 0 {
		h.actions = append(h.actions[:0:0], h.actions[over:]...)
	}
}

// Undo pops the most recent action and runs it. The action is consumed even
// when it fails.
func (h *History) Undo(ctx context.Context) (string, error) {
	h.mu.Lock()
	if len(h.actions) == 0 {
		h.mu.Unlock()
		return "", common.ErrNothingToUndo
	}
	a := h.actions[len(h.actions)-1]
	h.actions = h.actions[:len(h.actions)-1]
	h.mu.Unlock()

	return a.Label, a.Undo(ctx)
}

// Peek returns the label of the action Undo would run.
func (h *History) Peek() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.actions) == 0 {
		return "", false
	}
	return h.actions[len(h.actions)-1].Label, true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = nil
}
