// internal/app/system/sanitize/sanitize.go
// Package sanitize strips markup from caller-supplied strings before they
// are stored. Visitor names and device labels are plain text everywhere in
// the system; anything that looks like HTML in them is an attack or a
// mistake, so the strict policy removes it entirely rather than trying to
// keep a safe subset.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text returns s with all HTML removed and surrounding whitespace trimmed.
func Text(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

// Name normalizes a person or device name: markup stripped, whitespace
// collapsed to single spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(policy.Sanitize(s)), " ")
}
