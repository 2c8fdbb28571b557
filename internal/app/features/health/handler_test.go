package health_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	healthfeature "github.com/dalemusser/gatehub/internal/app/features/health"
	"github.com/dalemusser/gatehub/internal/testutil"
	"go.uber.org/zap"
)

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := healthfeature.NewHandler(db.Client(), zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "ok" || out.Database != "connected" {
		t.Errorf("unexpected body: %+v", out)
	}
}
