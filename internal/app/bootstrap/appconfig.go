// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS, request limits). AppConfig is everything specific to GateHub:
// database connections, session and QR token keys, audit logging modes, and
// scan rate limits.
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration. GateHub consumes sessions issued at
	// sign-in; SessionTTL bounds how long a cookie stays valid.
	SessionKey  string // Secret key for signing session cookies (must be strong in production)
	SessionName string // Cookie name for sessions (default: gatehub-session)
	SessionTTL  time.Duration

	// QR token keys. Hash key signs tokens; block key encrypts them so a
	// shared QR image does not leak the invitation id.
	QRHashKey  string
	QRBlockKey string

	// Audit logging settings: "all" (db+log), "db", "log", or "off".
	AuditLogAccess string
	AuditLogAdmin  string

	// Scan rate limiting. Denied attempts consume the budget; grants do not.
	ScanIPLimit     int
	ScanIPWindow    time.Duration
	ScanActorLimit  int
	ScanActorWindow time.Duration

	// Bootstrap admin. When set, startup ensures this user exists with a
	// super_admin membership in the named organization.
	BootstrapAdminEmail string
	BootstrapOrgName    string
}
