// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/gatehub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Access controls logging for gate events (scans, manual entries).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Access string
	// Admin controls logging for admin action events (invitation/device/org CRUD).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.DeviceID != nil {
		fields = append(fields, zap.String("device_id", event.DeviceID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.InvitationID != nil {
		fields = append(fields, zap.String("invitation_id", event.InvitationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAccess:
		setting = l.config.Access
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Access events ---

// AccessGranted logs a successful redemption at the gate.
func (l *Logger) AccessGranted(ctx context.Context, r *http.Request, orgID, invitationID primitive.ObjectID, actorID, deviceID *primitive.ObjectID, method string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAccess,
		EventType:      audit.EventAccessGranted,
		OrganizationID: &orgID,
		InvitationID:   &invitationID,
		ActorID:        actorID,
		DeviceID:       deviceID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
		Details:        map[string]string{"method": method},
	})
}

// AccessDenied logs a rejected redemption attempt with its reason.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, orgID primitive.ObjectID, invitationID, actorID, deviceID *primitive.ObjectID, method, reason string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAccess,
		EventType:      audit.EventAccessDenied,
		OrganizationID: &orgID,
		InvitationID:   invitationID,
		ActorID:        actorID,
		DeviceID:       deviceID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        false,
		FailureReason:  reason,
		Details:        map[string]string{"method": method},
	})
}

// ManualEntry logs an attendant recording a walk-in visitor.
func (l *Logger) ManualEntry(ctx context.Context, r *http.Request, orgID, actorID primitive.ObjectID, visitorName string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAccess,
		EventType:      audit.EventManualEntry,
		OrganizationID: &orgID,
		ActorID:        &actorID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
		Details:        map[string]string{"visitor_name": visitorName},
	})
}

// --- Admin events ---

// InvitationCreated logs a resident issuing an invitation.
func (l *Logger) InvitationCreated(ctx context.Context, r *http.Request, orgID, invitationID, actorID primitive.ObjectID, accessType string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventInvitationCreated,
		OrganizationID: &orgID,
		InvitationID:   &invitationID,
		ActorID:        &actorID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
		Details:        map[string]string{"access_type": accessType},
	})
}

// InvitationCancelled logs an invitation being revoked.
func (l *Logger) InvitationCancelled(ctx context.Context, r *http.Request, orgID, invitationID, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventInvitationCancelled,
		OrganizationID: &orgID,
		InvitationID:   &invitationID,
		ActorID:        &actorID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
	})
}

// DeviceDisabled logs a kiosk's key being revoked.
func (l *Logger) DeviceDisabled(ctx context.Context, r *http.Request, orgID, actorID primitive.ObjectID, deviceID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventDeviceDisabled,
		OrganizationID: &orgID,
		ActorID:        &actorID,
		DeviceID:       &deviceID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
	})
}

// DeviceRegistered logs a new kiosk being provisioned.
func (l *Logger) DeviceRegistered(ctx context.Context, r *http.Request, orgID, actorID primitive.ObjectID, deviceID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventDeviceRegistered,
		OrganizationID: &orgID,
		ActorID:        &actorID,
		DeviceID:       &deviceID,
		IP:             getClientIP(r),
		UserAgent:      r.UserAgent(),
		Success:        true,
		Details:        map[string]string{"name": name},
	})
}
