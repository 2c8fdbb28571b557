package invitations_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	invitationsfeature "github.com/dalemusser/gatehub/internal/app/features/invitations"
	accesslogstore "github.com/dalemusser/gatehub/internal/app/store/accesslog"
	invitationstore "github.com/dalemusser/gatehub/internal/app/store/invitations"
	"github.com/dalemusser/gatehub/internal/app/system/access"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"github.com/dalemusser/gatehub/internal/app/system/qrtoken"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/gatehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testQRHashKey = "test-qr-hash-key-0123456789abcdef"

type testEnv struct {
	handler *invitationsfeature.Handler
	codec   *qrtoken.Codec
	router  chi.Router
	fx      *testutil.Fixtures
	db      *mongo.Database

	org  models.Organization
	unit models.Unit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := zap.NewNop()
	store := invitationstore.New(db)
	logs := accesslogstore.New(db)
	hub := notify.NewHub(logger)
	codec := qrtoken.New([]byte(testQRHashKey), nil)
	svc := access.New(store, logs, hub, logger)
	handler := invitationsfeature.NewHandler(store, svc, codec, hub, nil, logger)

	// Bare router without the auth middleware; tests inject the principal
	// directly with WithTestUser.
	r := chi.NewRouter()
	r.Post("/", handler.HandleCreate)
	r.Get("/", handler.HandleList)
	r.Get("/{id}", handler.HandleView)
	r.Post("/{id}/cancel", handler.HandleCancel)

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Cedar Grove")
	unit := fx.CreateUnit(ctx, org.ID, "12B")

	return &testEnv{handler: handler, codec: codec, router: r, fx: fx, db: db, org: org, unit: unit}
}

func (e *testEnv) resident() *auth.SessionUser {
	return &auth.SessionUser{
		UserID:         primitive.NewObjectID(),
		MembershipID:   primitive.NewObjectID(),
		OrganizationID: e.org.ID,
		UnitID:         &e.unit.ID,
		Name:           "Pat Owner",
		Role:           models.RoleResident,
	}
}

func (e *testEnv) admin() *auth.SessionUser {
	return &auth.SessionUser{
		UserID:         primitive.NewObjectID(),
		MembershipID:   primitive.NewObjectID(),
		OrganizationID: e.org.ID,
		Name:           "Org Admin",
		Role:           models.RoleAdmin,
	}
}

func (e *testEnv) do(t *testing.T, u *auth.SessionUser, method, target string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if u != nil {
		req = auth.WithTestUser(req, u)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeWire(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestHandleCreate_ResidentSingle(t *testing.T) {
	env := newTestEnv(t)
	res := env.resident()

	rec := env.do(t, res, "POST", "/", map[string]any{
		"visitor_name": "Dana Guest",
		"access_type":  "single",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}

	out := decodeWire(t, rec)
	code, _ := out["code"].(string)
	if len(code) != invitationstore.CodeLength {
		t.Errorf("expected %d-char code, got %q", invitationstore.CodeLength, code)
	}
	if out["effective_status"] != "active" {
		t.Errorf("expected effective_status active, got %v", out["effective_status"])
	}
	if out["unit_id"] != env.unit.ID.Hex() {
		t.Errorf("expected resident's own unit, got %v", out["unit_id"])
	}

	// The QR token in the response must decode back to the new id.
	idHex, _ := out["id"].(string)
	token, _ := out["qr_token"].(string)
	decoded, err := env.codec.Decode(token)
	if err != nil {
		t.Fatalf("qr token does not verify: %v", err)
	}
	if decoded.Hex() != idHex {
		t.Errorf("qr token decodes to %s, want %s", decoded.Hex(), idHex)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	res := env.resident()
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"access_type": "single"}},
		{"bad access type", map[string]any{"visitor_name": "Dana", "access_type": "forever"}},
		{"multiple without max_uses", map[string]any{"visitor_name": "Dana", "access_type": "multiple"}},
		{"temporary without valid_until", map[string]any{"visitor_name": "Dana", "access_type": "temporary"}},
		{"window inverted", map[string]any{
			"visitor_name": "Dana", "access_type": "temporary",
			"valid_from": now, "valid_until": earlier,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, res, "POST", "/", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleCreate_ResidentCannotInviteToOtherUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	other := env.fx.CreateUnit(ctx, env.org.ID, "14A")

	rec := env.do(t, env.resident(), "POST", "/", map[string]any{
		"visitor_name": "Dana Guest",
		"access_type":  "single",
		"unit_id":      other.ID.Hex(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCreate_AdminNeedsExplicitUnit(t *testing.T) {
	env := newTestEnv(t)
	adm := env.admin()

	rec := env.do(t, adm, "POST", "/", map[string]any{
		"visitor_name": "Dana Guest",
		"access_type":  "single",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without unit, got %d", rec.Code)
	}

	rec = env.do(t, adm, "POST", "/", map[string]any{
		"visitor_name": "Dana Guest",
		"access_type":  "single",
		"unit_id":      env.unit.ID.Hex(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with unit, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleList_ResidentSeesOwnOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := env.resident()
	env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, res.MembershipID, nil)
	env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, res.MembershipID, nil)

	neighbor := env.fx.CreateResident(ctx, "Neighbor", env.org.ID, env.unit.ID)
	env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, neighbor.ID, nil)

	rec := env.do(t, res, "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeWire(t, rec)
	invs := out["invitations"].([]any)
	if len(invs) != 2 {
		t.Errorf("expected 2 invitations, got %d", len(invs))
	}
}

func TestHandleList_AdminSeesOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := env.fx.CreateResident(ctx, "Resident A", env.org.ID, env.unit.ID)
	b := env.fx.CreateResident(ctx, "Resident B", env.org.ID, env.unit.ID)
	env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, a.ID, nil)
	env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, b.ID, nil)

	// Another organization's invitation must never show up.
	otherOrg := env.fx.CreateOrganization(ctx, "Elm Court")
	otherUnit := env.fx.CreateUnit(ctx, otherOrg.ID, "1A")
	c := env.fx.CreateResident(ctx, "Outsider", otherOrg.ID, otherUnit.ID)
	env.fx.CreateInvitation(ctx, otherOrg.ID, otherUnit.ID, c.ID, nil)

	rec := env.do(t, env.admin(), "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := decodeWire(t, rec)
	invs := out["invitations"].([]any)
	if len(invs) != 2 {
		t.Errorf("expected 2 invitations, got %d", len(invs))
	}
}

func TestHandleView_StrangerResidentGets404(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := env.fx.CreateResident(ctx, "Owner", env.org.ID, env.unit.ID)
	inv := env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, owner.ID, nil)

	rec := env.do(t, env.resident(), "GET", "/"+inv.ID.Hex(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner resident, got %d", rec.Code)
	}

	// A guard sees it fine.
	guard := &auth.SessionUser{
		UserID:         primitive.NewObjectID(),
		MembershipID:   primitive.NewObjectID(),
		OrganizationID: env.org.ID,
		Role:           models.RoleGuard,
	}
	rec = env.do(t, guard, "GET", "/"+inv.ID.Hex(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for guard, got %d", rec.Code)
	}
}

func TestHandleCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := env.resident()
	inv := env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, res.MembershipID, nil)

	rec := env.do(t, res, "POST", "/"+inv.ID.Hex()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeWire(t, rec)
	if out["status"] != "cancelled" {
		t.Errorf("expected status cancelled, got %v", out["status"])
	}

	// Cancelling a cancelled invitation conflicts.
	rec = env.do(t, res, "POST", "/"+inv.ID.Hex()+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double cancel, got %d", rec.Code)
	}
}

func TestHandleCancel_StrangerForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := env.fx.CreateResident(ctx, "Owner", env.org.ID, env.unit.ID)
	inv := env.fx.CreateInvitation(ctx, env.org.ID, env.unit.ID, owner.ID, nil)

	rec := env.do(t, env.resident(), "POST", "/"+inv.ID.Hex()+"/cancel", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// An org admin may revoke any invitation in the organization.
	rec = env.do(t, env.admin(), "POST", "/"+inv.ID.Hex()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d (body %s)", rec.Code, rec.Body.String())
	}
}
