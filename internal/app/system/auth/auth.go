// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	devicestore "github.com/dalemusser/gatehub/internal/app/store/devices"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	isAuthKey       = "is_authenticated"
	userIDKey       = "user_id"
	membershipIDKey = "membership_id"
)

// SessionUser is the authenticated principal injected into r.Context().
// Role and organization come from the membership record re-fetched on every
// request, so role changes and disables take effect without re-login.
// DeviceID is set when the principal is a kiosk rather than a person.
type SessionUser struct {
	UserID         primitive.ObjectID
	MembershipID   primitive.ObjectID
	OrganizationID primitive.ObjectID
	UnitID         *primitive.ObjectID
	Name           string
	Role           string
	DeviceID       *primitive.ObjectID
}

// Caps returns the capability set for the user's role.
func (u *SessionUser) Caps() capability.Set {
	return capability.ForRole(u.Role)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a user into the request context directly. Test
// helper; production requests go through LoadSessionUser or LoadDevice.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// UserSource is what the session manager needs from the user store.
type UserSource interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// MembershipSource is what the session manager needs from the membership
// store.
type MembershipSource interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error)
}

// DeviceVerifier is what kiosk authentication needs from the device store.
type DeviceVerifier interface {
	Verify(ctx context.Context, id primitive.ObjectID, key string) (models.Device, error)
	Touch(ctx context.Context, id primitive.ObjectID) error
}

// SessionManager owns the session cookie and the auth middleware chain.
type SessionManager struct {
	store       *sessions.CookieStore
	cookieName  string
	users       UserSource
	memberships MembershipSource
	devices     DeviceVerifier
	logger      *zap.Logger
}

// NewSessionManager builds a SessionManager from the configured session
// secret. The secret must be at least 32 bytes.
func NewSessionManager(secret, cookieName string, ttl time.Duration, secure bool, users UserSource, memberships MembershipSource, devices DeviceVerifier, logger *zap.Logger) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{
		store:       store,
		cookieName:  cookieName,
		users:       users,
		memberships: memberships,
		devices:     devices,
		logger:      logger,
	}, nil
}

// SignIn establishes a session for the given user acting through the given
// membership.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID, membershipID primitive.ObjectID) error {
	sess, _ := sm.store.Get(r, sm.cookieName)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID.Hex()
	sess.Values[membershipIDKey] = membershipID.Hex()
	return sess.Save(r, w)
}

// SignOut clears the session.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.cookieName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser resolves the session cookie to a SessionUser, re-fetching
// the user and membership so disables and role changes bite immediately.
// A session pointing at a disabled or deleted record is treated as signed
// out, not as an error.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sm.store.Get(r, sm.cookieName)

		isAuth, _ := sess.Values[isAuthKey].(bool)
		if !isAuth {
			next.ServeHTTP(w, r)
			return
		}

		userHex, _ := sess.Values[userIDKey].(string)
		membershipHex, _ := sess.Values[membershipIDKey].(string)
		userID, err1 := primitive.ObjectIDFromHex(userHex)
		membershipID, err2 := primitive.ObjectIDFromHex(membershipHex)
		if err1 != nil || err2 != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := sm.users.FindByID(r.Context(), userID)
		if err != nil || user.Status != status.Active {
			next.ServeHTTP(w, r)
			return
		}
		membership, err := sm.memberships.FindByID(r.Context(), membershipID)
		if err != nil || membership.Status != status.Active || membership.UserID != userID {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, withUser(r, &SessionUser{
			UserID:         user.ID,
			MembershipID:   membership.ID,
			OrganizationID: membership.OrganizationID,
			UnitID:         membership.UnitID,
			Name:           user.FullName,
			Role:           membership.Role,
		}))
	})
}

// LoadDevice authenticates kiosk requests carrying
// "Authorization: Bearer <device-id>:<key>". A verified device acts as a
// SessionUser with the kiosk role. Requests without the header pass through
// untouched so the middleware can sit on mixed routers.
func (sm *SessionManager) LoadDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			next.ServeHTTP(w, r)
			return
		}

		idHex, key, ok := strings.Cut(raw, ":")
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		deviceID, err := primitive.ObjectIDFromHex(idHex)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		dev, err := sm.devices.Verify(r.Context(), deviceID, key)
		if err != nil {
			if !errors.Is(err, devicestore.ErrNotFound) && !errors.Is(err, devicestore.ErrBadKey) {
				sm.logger.Error("device verification failed", zap.Error(err))
			}
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := sm.devices.Touch(r.Context(), dev.ID); err != nil {
			sm.logger.Warn("device touch failed", zap.Error(err), zap.String("device_id", dev.ID.Hex()))
		}

		next.ServeHTTP(w, withUser(r, &SessionUser{
			UserID:         dev.ID,
			OrganizationID: dev.OrganizationID,
			UnitID:         dev.UnitID,
			Name:           dev.Name,
			Role:           models.RoleKiosk,
			DeviceID:       &dev.ID,
		}))
	})
}

// RequireSignedIn ensures there is a user in context. API callers get a
// JSON 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability gates a route on the actor's role granting the
// capability. Missing user is 401; present user without the capability is
// 403. Unknown roles carry no capabilities, so they land on 403.
func (sm *SessionManager) RequireCapability(c capability.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !u.Caps().Has(c) {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
