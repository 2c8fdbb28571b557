// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for GateHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: GATEHUB_MONGO_URI, GATEHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "gatehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "gatehub-session", Desc: "Session cookie name"},
	{Name: "session_ttl", Default: "12h", Desc: "Session lifetime (e.g., 12h, 30m)"},

	// QR token keys. The hash key signs tokens; the block key (16, 24, or 32
	// bytes) encrypts them. An empty block key disables encryption.
	{Name: "qr_hash_key", Default: "dev-only-qr-hash-key-0123456789AB", Desc: "QR token signing key (at least 32 bytes in production)"},
	{Name: "qr_block_key", Default: "", Desc: "QR token encryption key (16, 24, or 32 bytes; blank disables encryption)"},

	// Audit logging settings
	{Name: "audit_log_access", Default: "all", Desc: "Gate event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Scan rate limiting
	{Name: "scan_ip_limit", Default: 30, Desc: "Max denied scans per IP per window"},
	{Name: "scan_ip_window", Default: "1m", Desc: "Window for the per-IP denied-scan limit"},
	{Name: "scan_actor_limit", Default: 10, Desc: "Max denied scans per actor per window"},
	{Name: "scan_actor_window", Default: "1m", Desc: "Window for the per-actor denied-scan limit"},

	// Bootstrap admin
	{Name: "bootstrap_admin_email", Default: "", Desc: "Email of the bootstrap admin (created/promoted on startup)"},
	{Name: "bootstrap_org_name", Default: "", Desc: "Organization granted to the bootstrap admin (created if missing)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GATEHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GATEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:  appValues.String("session_key"),
		SessionName: appValues.String("session_name"),
		SessionTTL:  appValues.Duration("session_ttl", 12*time.Hour),

		QRHashKey:  appValues.String("qr_hash_key"),
		QRBlockKey: appValues.String("qr_block_key"),

		AuditLogAccess: appValues.String("audit_log_access"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),

		ScanIPLimit:     appValues.Int("scan_ip_limit"),
		ScanIPWindow:    appValues.Duration("scan_ip_window", time.Minute),
		ScanActorLimit:  appValues.Int("scan_actor_limit"),
		ScanActorWindow: appValues.Duration("scan_actor_window", time.Minute),

		BootstrapAdminEmail: appValues.String("bootstrap_admin_email"),
		BootstrapOrgName:    appValues.String("bootstrap_org_name"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// GateHub validates the MongoDB URI and key material here so bad deploys
// fail fast instead of serving unverifiable tokens.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 bytes, got %d", len(appCfg.SessionKey))
	}
	if len(appCfg.QRHashKey) < 32 {
		return fmt.Errorf("qr_hash_key must be at least 32 bytes, got %d", len(appCfg.QRHashKey))
	}
	switch len(appCfg.QRBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("qr_block_key must be 16, 24, or 32 bytes, got %d", len(appCfg.QRBlockKey))
	}

	// A bootstrap admin needs an organization to hold the membership.
	if appCfg.BootstrapAdminEmail != "" && appCfg.BootstrapOrgName == "" {
		return fmt.Errorf("bootstrap_admin_email requires bootstrap_org_name to be set")
	}

	return nil
}
