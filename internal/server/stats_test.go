package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luchenqun/lucky-dog/internal/database"
)

func TestHandleWorkStats(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha", "beta")

	rr := httptest.NewRecorder()
	s.handleWorkStats(rr, httptest.NewRequest("GET", "/work/stats", nil))

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp workStatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || resp.Unchecked != 2 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
	if resp.PasswordFound {
		t.Fatalf("expected passwordFound false on a fresh store")
	}
	if resp.ResetAllowed {
		t.Fatalf("expected resetAllowed false for a non-sample store")
	}
	if resp.TokenRequired {
		t.Fatalf("expected tokenRequired false when no API token is configured")
	}
	if resp.Progress != "0.00" {
		t.Fatalf("expected progress=\"0.00\" on a fresh store, got %q", resp.Progress)
	}
}

func TestHandleWorkStats_ProgressReflectsCheckedFraction(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha", "beta")

	q := database.NewQueries(db)
	if err := q.MarkCheckedByPassphrase(context.Background(), []string{"alpha", "beta"}, time.Now().Unix()); err != nil {
		t.Fatalf("mark checked: %v", err)
	}

	rr := httptest.NewRecorder()
	s.handleWorkStats(rr, httptest.NewRequest("GET", "/work/stats", nil))

	var resp workStatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Progress != "100.00" {
		t.Fatalf("expected progress=\"100.00\" once every record is checked, got %q", resp.Progress)
	}
}

func TestHandleWorkStats_TokenRequiredReflectsConfig(t *testing.T) {
	s, _ := newSampleTestServer(t)

	rr := httptest.NewRecorder()
	s.handleWorkStats(rr, httptest.NewRequest("GET", "/work/stats", nil))

	var resp workStatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.TokenRequired {
		t.Fatalf("expected tokenRequired true when an API token is configured")
	}
	if !resp.ResetAllowed {
		t.Fatalf("expected resetAllowed true for the sample store")
	}
}
