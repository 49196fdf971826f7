package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New(nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	h := New([]Checker{
		{Name: "presentations", Check: func(_ context.Context) error { return nil }},
		{Name: "records", Check: func(_ context.Context) error { return nil }},
	})

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if len(body.Checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(body.Checks))
	}
	if body.Checks["records"].Status != "ok" {
		t.Errorf("records check = %+v, want ok", body.Checks["records"])
	}
}

func TestReadyz_FailingCheckerReturns503(t *testing.T) {
	h := New([]Checker{
		{Name: "presentations", Check: func(_ context.Context) error { return nil }},
		{Name: "records", Check: func(_ context.Context) error {
			return errors.New("connection refused")
		}},
	})

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if got := body.Checks["records"]; got.Status != "fail" || got.Error == "" {
		t.Errorf("records check = %+v, want fail with error", got)
	}
	// The healthy check still reports individually.
	if body.Checks["presentations"].Status != "ok" {
		t.Errorf("presentations check = %+v, want ok", body.Checks["presentations"])
	}
}

func TestReadyz_CheckTimeout(t *testing.T) {
	h := New([]Checker{
		{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	}, WithCheckTimeout(20*time.Millisecond))

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()

	begin := time.Now()
	h.Readyz(rec, req)

	if took := time.Since(begin); took > 2*time.Second {
		t.Errorf("readyz took %v, timeout not applied", took)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New(nil).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}
