// internal/app/policy/invitationpolicy/invitationpolicy.go
package invitationpolicy

import (
	"github.com/dalemusser/gatehub/internal/domain/models"
)

// CanCancel reports whether the membership may cancel the invitation.
// The issuing resident may always cancel their own; org admins may cancel
// any invitation in their organization. Guards and kiosks may not cancel.
func CanCancel(m models.Membership, inv models.Invitation) bool {
	if m.OrganizationID != inv.OrganizationID {
		return false
	}
	switch m.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return true
	default:
		return m.ID == inv.MembershipID
	}
}

// CanView reports whether the membership may see the invitation's details.
// Owners see their own; guards, admins and kiosks see any invitation in
// their organization (the gate has to render what it scans).
func CanView(m models.Membership, inv models.Invitation) bool {
	if m.OrganizationID != inv.OrganizationID {
		return false
	}
	switch m.Role {
	case models.RoleGuard, models.RoleKiosk, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	default:
		return m.ID == inv.MembershipID
	}
}
