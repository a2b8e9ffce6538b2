package models

import "time"

// SyncState is the local bookkeeping layered on top of every cached entity.
// It lives in dedicated columns, never in the JSON payload.
type SyncState struct {
	// Dirty marks local state not yet confirmed by the remote backend.
	Dirty bool `json:"-"`
	// Deleted is the tombstone marker; active listings filter it out.
	Deleted bool `json:"-"`
	// UpdatedAt orders writes; it is stored with millisecond precision.
	UpdatedAt time.Time `json:"-"`
}

func (s *SyncState) State() *SyncState { return s }

// Entity is implemented by every locally cached record.
type Entity interface {
	EntityID() string
	// ProjectRef and InstallationRef feed the secondary indexes; empty when
	// the entity has no such parent.
	ProjectRef() string
	InstallationRef() string
	State() *SyncState
}

// Touch stamps a local write: the record becomes dirty with a fresh
// millisecond timestamp that is strictly after the previous one.
func (s *SyncState) Touch(now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Millisecond)
	}
	s.UpdatedAt = now
	s.Dirty = true
}
