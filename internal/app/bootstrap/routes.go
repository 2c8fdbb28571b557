// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accessfeature "github.com/dalemusser/gatehub/internal/app/features/access"
	accesslogfeature "github.com/dalemusser/gatehub/internal/app/features/accesslog"
	devicesfeature "github.com/dalemusser/gatehub/internal/app/features/devices"
	eventsfeature "github.com/dalemusser/gatehub/internal/app/features/events"
	healthfeature "github.com/dalemusser/gatehub/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/gatehub/internal/app/features/invitations"
	accesslogstore "github.com/dalemusser/gatehub/internal/app/store/accesslog"
	"github.com/dalemusser/gatehub/internal/app/store/audit"
	devicestore "github.com/dalemusser/gatehub/internal/app/store/devices"
	invitationstore "github.com/dalemusser/gatehub/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/gatehub/internal/app/store/memberships"
	userstore "github.com/dalemusser/gatehub/internal/app/store/users"
	"github.com/dalemusser/gatehub/internal/app/system/access"
	"github.com/dalemusser/gatehub/internal/app/system/auditlog"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"github.com/dalemusser/gatehub/internal/app/system/qrtoken"
	"github.com/dalemusser/gatehub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// GateHub is a JSON API: it wires the stores, the access authorization
// service, the realtime hub, and the auth middleware chain, then mounts a
// feature router per URL area. Session users and kiosk devices are both
// resolved globally so every handler sees the same auth.CurrentUser view.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.GateHubMongoDatabase

	users := userstore.New(db)
	memberships := membershipstore.New(db)
	invitations := invitationstore.New(db)
	accessLogs := accesslogstore.New(db)
	devices := devicestore.New(db)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionTTL, secure, users, memberships, devices, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var blockKey []byte
	if appCfg.QRBlockKey != "" {
		blockKey = []byte(appCfg.QRBlockKey)
	}
	codec := qrtoken.New([]byte(appCfg.QRHashKey), blockKey)

	hub := notify.NewHub(logger)

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Access: appCfg.AuditLogAccess,
		Admin:  appCfg.AuditLogAdmin,
	})

	limiter := ratelimit.NewScanLimiterWithConfig(
		appCfg.ScanIPLimit, appCfg.ScanIPWindow,
		appCfg.ScanActorLimit, appCfg.ScanActorWindow,
	)

	svc := access.New(invitations, accessLogs, hub, logger)

	r := chi.NewRouter()

	// Global auth middleware: sessions first, then kiosk bearer keys. Both
	// resolve to the same SessionUser so handlers never care which one it was.
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(sessionMgr.LoadDevice)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.GateHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Gate decisions: scan, manual entry
	accessHandler := accessfeature.NewHandler(svc, codec, limiter, auditLogger, logger)
	r.Mount("/access", accessfeature.Routes(accessHandler, sessionMgr))

	// Invitation lifecycle
	invHandler := invitationsfeature.NewHandler(invitations, svc, codec, hub, auditLogger, logger)
	r.Mount("/invitations", invitationsfeature.Routes(invHandler, sessionMgr))

	// Gate history (read-only)
	logHandler := accesslogfeature.NewHandler(accessLogs, logger)
	r.Mount("/access-log", accesslogfeature.Routes(logHandler, sessionMgr))

	// Realtime change events for dashboards
	eventsHandler := eventsfeature.NewHandler(hub, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

	// Kiosk device provisioning
	devHandler := devicesfeature.NewHandler(devices, auditLogger, logger)
	r.Mount("/devices", devicesfeature.Routes(devHandler, sessionMgr))

	return r, nil
}
