package revisions

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/dmitrijs2005/instalatrack/internal/local"
	"github.com/dmitrijs2005/instalatrack/internal/models"
)

// History lists the versions of an installation, newest first.
func History(ctx context.Context, s *local.Store, installationID string) ([]*models.ItemVersion, error) {
	versions, err := s.Versions.ListByInstallation(ctx, installationID)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(versions)
	return versions, nil
}

// SortNewestFirst orders by creation time, then revision, both descending.
func SortNewestFirst(versions []*models.ItemVersion) {
	slices.SortStableFunc(versions, func(a, b *models.ItemVersion) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Revision, a.Revision)
	})
}

// HistoryFilter narrows a history listing. Empty fields match everything;
// From and To are inclusive.
type HistoryFilter struct {
	Types     []models.VersionType
	Motives   []models.Motive
	UserEmail string
	From      time.Time
	To        time.Time
}

func (f HistoryFilter) match(v *models.ItemVersion) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, v.Type) {
		return false
	}
	if len(f.Motives) > 0 && !slices.Contains(f.Motives, v.Motive) {
		return false
	}
	if f.UserEmail != "" && !strings.EqualFold(f.UserEmail, v.UserEmail) {
		return false
	}
	if !f.From.IsZero() && v.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && v.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// Filter keeps the order of versions.
func Filter(versions []*models.ItemVersion, f HistoryFilter) []*models.ItemVersion {
	out := make([]*models.ItemVersion, 0, len(versions))
	for _, v := range versions {
		if f.match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Previous returns the entry displayed after versionID in list. With a
// filtered list this may skip revisions.
func Previous(list []*models.ItemVersion, versionID string) (*models.ItemVersion, bool) {
	i := slices.IndexFunc(list, func(v *models.ItemVersion) bool { return v.ID == versionID })
	if i < 0 || i+1 >= len(list) {
		return nil, false
	}
	return list[i+1], true
}

// Version loads one version and checks it belongs to installationID.
func Version(ctx context.Context, s *local.Store, installationID, versionID string) (*models.ItemVersion, error) {
	v, err := s.Versions.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.InstallationID != installationID {
		return nil, fmt.Errorf("version %s: %w", versionID, common.ErrVersionNotInScope)
	}
	return v, nil
}
