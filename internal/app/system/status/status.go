// internal/app/system/status/status.go
// Package status holds the shared record-status vocabulary for orgs, units,
// users, memberships, and devices. Invitation lifecycle states live on the
// Invitation model itself and are not interchangeable with these.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)
