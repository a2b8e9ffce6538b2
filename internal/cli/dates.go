package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/instalatrack/internal/common"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/br"
	wcommon "github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02", "02/01/2006 15:04", "02/01/2006"}

var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(br.All...)
	w.Add(wcommon.All...)
	return w
}()

// parseWhen accepts a calendar date or a phrase such as "yesterday",
// "3 days ago" or "ontem", read relative to now in now's location.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := parseDate(s, now.Location()); err == nil {
		return t, nil
	}
	r, err := naturalDates.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("date %q not understood: %w", s, common.ErrValidation)
	}
	return r.Time, nil
}

// parseDate accepts only explicit layouts.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: use YYYY-MM-DD or DD/MM/YYYY: %w", s, common.ErrValidation)
}
