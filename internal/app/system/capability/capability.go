// internal/app/system/capability/capability.go
// Package capability resolves whether an actor, by role, may perform an
// authorization action. The role→capability table is fixed at compile time
// and capability resolution is pure: no network, no storage, no side effects.
//
// Authorization decisions elsewhere in the app are expressed as capability
// membership tests rather than role-name comparisons, so new roles compose
// without touching the redemption engine or the handlers.
package capability

import (
	"strings"

	"github.com/dalemusser/gatehub/internal/domain/models"
)

// Capability is an atomic permission grant.
type Capability string

const (
	AccessScan        Capability = "access.scan"        // redeem codes/QR at the gate
	AccessManual      Capability = "access.manual"      // grant entry without an invitation
	AccessLogView     Capability = "access_log.view"    // read the gate audit trail
	InvitationsCreate Capability = "invitations.create" // issue invitations
	InvitationsCancel Capability = "invitations.cancel" // cancel invitations
	InvitationsView   Capability = "invitations.view"   // list/view invitations
	DevicesManage     Capability = "devices.manage"     // register/disable kiosk devices
)

// Set is an immutable capability set. Callers must treat the set returned by
// ForRole as read-only; it is shared across all sessions.
type Set map[Capability]struct{}

// Has reports whether the set contains c.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// HasAny reports whether the set contains at least one of caps.
// An empty caps list is vacuously false.
func (s Set) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if s.Has(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of caps.
// An empty caps list is vacuously true.
func (s Set) HasAll(caps ...Capability) bool {
	for _, c := range caps {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

func newSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

var emptySet = Set{}

// roleTable is loaded once and immutable thereafter.
var roleTable = map[string]Set{
	models.RoleResident: newSet(
		InvitationsCreate,
		InvitationsCancel,
		InvitationsView,
	),
	models.RoleGuard: newSet(
		AccessScan,
		AccessManual,
		AccessLogView,
		InvitationsView,
	),
	models.RoleKiosk: newSet(
		AccessScan,
	),
	models.RoleAdmin: newSet(
		AccessScan,
		AccessManual,
		AccessLogView,
		InvitationsCreate,
		InvitationsCancel,
		InvitationsView,
		DevicesManage,
	),
	models.RoleSuperAdmin: newSet(
		AccessScan,
		AccessManual,
		AccessLogView,
		InvitationsCreate,
		InvitationsCancel,
		InvitationsView,
		DevicesManage,
	),
}

// ForRole returns the capability set for the given role name (case
// insensitive). Unknown roles map to the empty set — fail closed.
func ForRole(role string) Set {
	if s, ok := roleTable[strings.ToLower(strings.TrimSpace(role))]; ok {
		return s
	}
	return emptySet
}
