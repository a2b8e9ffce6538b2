// Package revisions is the append-only history of installations: every
// forced revision stores an immutable snapshot that can be browsed, diffed,
// exported and restored.
package revisions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/models"
	"github.com/google/uuid"
)

// Entry describes the revision being recorded. Zero values pick the
// defaults: type created for the first revision and edited afterwards,
// motive matching the type.
type Entry struct {
	Type        models.VersionType
	Motive      models.Motive
	Description string
	UserEmail   string
}

type Ledger struct {
	now func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Revise bumps the revision of inst and appends the matching version. tx
// must be the transaction that writes inst, so the counter and the history
// cannot diverge.
func (l *Ledger) Revise(ctx context.Context, tx *local.Store, inst *models.Installation, e Entry) (*models.ItemVersion, error) {
	latest, err := LatestRevision(ctx, tx, inst.ID)
	if err != nil {
		return nil, err
	}
	next := max(inst.Revision, latest) + 1

	typ, motive, err := resolve(e, next == 1)
	if err != nil {
		return nil, err
	}

	inst.Revision = next
	inst.Revised = next > 1

	at := l.now().UTC().Truncate(time.Millisecond)
	v := &models.ItemVersion{
		ID:             uuid.NewString(),
		InstallationID: inst.ID,
		ProjectID:      inst.ProjectID,
		Revision:       next,
		Type:           typ,
		Motive:         motive,
		Description:    e.Description,
		Snapshot:       inst.Snapshot(),
		CreatedAt:      at,
		UserEmail:      e.UserEmail,
	}
	// Versions never leave the device, so they are born clean.
	v.UpdatedAt = at

	if err := models.Validate(v); err != nil {
		return nil, err
	}
	if err := tx.Versions.Put(ctx, v); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}
	return v, nil
}

// LatestRevision returns the highest stored revision of an installation, 0
// when it has none.
func LatestRevision(ctx context.Context, s *local.Store, installationID string) (int, error) {
	versions, err := s.Versions.ListByInstallation(ctx, installationID)
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, v := range versions {
		latest = max(latest, v.Revision)
	}
	return latest, nil
}

func resolve(e Entry, first bool) (models.VersionType, models.Motive, error) {
	typ := e.Type
	switch {
	case first:
		typ = models.VersionCreated
	case typ == "" || typ == models.VersionCreated:
		typ = models.VersionEdited
	}

	motive := e.Motive
	if motive == "" {
		switch typ {
		case models.VersionCreated:
			motive = models.MotiveCreated
		case models.VersionRestored:
			motive = models.MotiveRestored
		default:
			motive = models.MotiveEdited
		}
	}

	if !typ.Valid() {
		return "", "", fmt.Errorf("version type %q: %w", typ, common.ErrValidation)
	}
	if !motive.Valid() {
		return "", "", fmt.Errorf("motive %q: %w", motive, common.ErrValidation)
	}
	return typ, motive, nil
}

// Restored returns the state a restore of v writes: every displayable field,
// photos included, comes from the snapshot; identity, project and revision
// bookkeeping stay as they are now.
func Restored(current *models.Installation, v *models.ItemVersion) (*models.Installation, error) {
	if v.InstallationID != current.ID {
		return nil, fmt.Errorf("version %s: %w", v.ID, common.ErrVersionNotInScope)
	}
	out := *current
	out.ApplySnapshot(v.Snapshot)
	return &out, nil
}
