package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/luchenqun/lucky-dog/internal/config"
	"github.com/luchenqun/lucky-dog/internal/database"
)

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	return bytes.NewReader(data)
}

func TestHandleWorkRequest_ReservesBatch(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha", "beta", "gamma")

	body := jsonBody(t, map[string]any{"cpuCount": 1, "clientId": "worker-1"})
	req := httptest.NewRequest("POST", "/work/request", body)
	rr := httptest.NewRecorder()
	s.handleWorkRequest(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp workRequestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Count != 3 || resp.Encrypt == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.BatchID == "" {
		t.Fatalf("expected non-empty batchId")
	}
}

func TestHandleWorkRequest_MissingClientIDRejected(t *testing.T) {
	s, _ := newTestServer(t)

	body := jsonBody(t, map[string]any{"cpuCount": 1})
	req := httptest.NewRequest("POST", "/work/request", body)
	rr := httptest.NewRecorder()
	s.handleWorkRequest(rr, req)

	if rr.Code != 400 {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleWorkRequest_LatchSetReturnsEmptyBatch(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha")
	if err := s.latch.Confirm("worker-0", "alpha"); err != nil {
		t.Fatalf("confirm latch: %v", err)
	}

	body := jsonBody(t, map[string]any{"cpuCount": 1, "clientId": "worker-1"})
	req := httptest.NewRequest("POST", "/work/request", body)
	rr := httptest.NewRecorder()
	s.handleWorkRequest(rr, req)

	var resp workRequestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Count != 0 || resp.PasswordFound == nil || !*resp.PasswordFound {
		t.Fatalf("expected success=false, empty batch, passwordFound=true, got %+v", resp)
	}
}

func TestHandleWorkRequest_ExhaustedStoreReturnsEmptyBatch(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha")

	// Drain the only candidate before leasing again.
	first := jsonBody(t, map[string]any{"cpuCount": 1, "clientId": "worker-1"})
	rr1 := httptest.NewRecorder()
	s.handleWorkRequest(rr1, httptest.NewRequest("POST", "/work/request", first))
	if rr1.Code != 200 {
		t.Fatalf("expected 200 on first lease, got %d: %s", rr1.Code, rr1.Body.String())
	}

	second := jsonBody(t, map[string]any{"cpuCount": 1, "clientId": "worker-2"})
	rr2 := httptest.NewRecorder()
	s.handleWorkRequest(rr2, httptest.NewRequest("POST", "/work/request", second))

	var resp workRequestResponse
	if err := json.NewDecoder(rr2.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Count != 0 || len(resp.Passwords) != 0 {
		t.Fatalf("expected success=false with empty passwords on exhausted store, got %+v", resp)
	}
}

func TestHandleWorkResult_SuccessSetsLatchAndMarksChecked(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha", "beta")

	body := jsonBody(t, map[string]any{
		"batchId":       "worker-1-123",
		"clientId":      "worker-1",
		"success":       true,
		"foundPassword": "beta",
		"passwords":     []string{"alpha", "beta"},
	})
	req := httptest.NewRequest("POST", "/work/result", body)
	rr := httptest.NewRecorder()
	s.handleWorkResult(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !s.latch.IsFound() {
		t.Fatalf("expected latch to be set after successful result")
	}
	for _, pwd := range []string{"alpha", "beta"} {
		rec, err := s.queries.GetByPassphrase(req.Context(), pwd)
		if err != nil {
			t.Fatalf("get %s: %v", pwd, err)
		}
		if rec.Status != database.StatusChecked {
			t.Fatalf("expected %s CHECKED after successful result, got %d", pwd, rec.Status)
		}
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["shouldStop"] != true {
		t.Fatalf("expected shouldStop=true, got %v", resp)
	}
}

func TestHandleWorkResult_SuccessWithoutPasswordRejected(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha")

	body := jsonBody(t, map[string]any{
		"clientId":  "worker-1",
		"success":   true,
		"passwords": []string{"alpha"},
	})
	req := httptest.NewRequest("POST", "/work/result", body)
	rr := httptest.NewRecorder()
	s.handleWorkResult(rr, req)

	if rr.Code != 400 {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleWorkResult_FailureMarksChecked(t *testing.T) {
	s, db := newTestServer(t)
	seedRecords(t, db, "alpha")

	body := jsonBody(t, map[string]any{
		"clientId":  "worker-1",
		"success":   false,
		"passwords": []string{"alpha"},
	})
	req := httptest.NewRequest("POST", "/work/result", body)
	rr := httptest.NewRecorder()
	s.handleWorkResult(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if s.latch.IsFound() {
		t.Fatalf("expected latch to remain unset on failure path")
	}
	rec, err := s.queries.GetByPassphrase(req.Context(), "alpha")
	if err != nil {
		t.Fatalf("get alpha: %v", err)
	}
	if rec.Status != database.StatusChecked {
		t.Fatalf("expected alpha CHECKED after failure report, got %d", rec.Status)
	}
}

func TestHandleWorkFound_SetsLatchIdempotently(t *testing.T) {
	s, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		body := jsonBody(t, map[string]any{"password": "alpha", "clientId": "worker-1"})
		req := httptest.NewRequest("POST", "/work/found", body)
		rr := httptest.NewRecorder()
		s.handleWorkFound(rr, req)
		if rr.Code != 200 {
			t.Fatalf("attempt %d: expected 200, got %d", i, rr.Code)
		}
	}
	if !s.latch.IsFound() {
		t.Fatalf("expected latch set after confirm-found calls")
	}
}

func TestHandleWorkResetTimeout_ReturnsReclaimedCount(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	s.handleWorkResetTimeout(rr, httptest.NewRequest("POST", "/work/reset-timeout", nil))

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		ResetCount int64 `json:"resetCount"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ResetCount != 0 {
		t.Fatalf("expected 0 reclaimed on a fresh store, got %d", body.ResetCount)
	}
}

func TestHandleWorkResetFound_DeniedOutsideSampleStore(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	s.handleWorkResetFound(rr, httptest.NewRequest("POST", "/work/reset-found", nil))

	if rr.Code != 403 {
		t.Fatalf("expected 403 outside sample store, got %d", rr.Code)
	}
}

func TestHandleWorkResetFound_AllowedOnSampleStore(t *testing.T) {
	s, db := newSampleTestServer(t)
	seedRecords(t, db, "alpha")
	if err := s.latch.Confirm("worker-1", "alpha"); err != nil {
		t.Fatalf("confirm latch: %v", err)
	}

	rr := httptest.NewRecorder()
	s.handleWorkResetFound(rr, httptest.NewRequest("POST", "/work/reset-found", nil))

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if s.latch.IsFound() {
		t.Fatalf("expected latch cleared after reset-found")
	}
}

func TestConfig_IsSampleStoreByBasename(t *testing.T) {
	cfg := &config.Config{DBName: "/var/data/" + config.SampleDBName}
	if !cfg.IsSampleStore() {
		t.Fatalf("expected IsSampleStore() true for a path ending in the sample db name")
	}
}
