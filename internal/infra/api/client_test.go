package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/remedy/internal/core/domain"
)

func TestClient_ReportErrors(t *testing.T) {
	var got domain.ErrorReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/errors/report/sess-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	report := &domain.ErrorReport{
		Errors: []domain.ReportedError{
			{Source: domain.SourceBrowser, Type: "auto_detected", Message: "boom", Severity: domain.SeverityError},
		},
		Command: "npm run dev",
	}

	if err := c.ReportErrors(context.Background(), "sess-1", report); err != nil {
		t.Fatalf("ReportErrors: %v", err)
	}
	if len(got.Errors) != 1 || got.Errors[0].Message != "boom" {
		t.Errorf("server received %+v", got)
	}
	if stats := c.GetStats(); stats.SuccessCount != 1 {
		t.Errorf("success count = %d, want 1", stats.SuccessCount)
	}
}

func TestClient_FixAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/errors/fix-all/sess-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.FixResponse{
			Success:        true,
			PatchesApplied: 2,
			FilesModified:  []string{"src/App.tsx"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	resp, err := c.FixAll(context.Background(), "sess-1", &domain.ErrorReport{})
	if err != nil {
		t.Fatalf("FixAll: %v", err)
	}
	if !resp.Success || resp.PatchesApplied != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.ReportErrors(context.Background(), "sess-1", &domain.ErrorReport{}); err == nil {
		t.Fatal("expected error on 500")
	}
	if stats := c.GetStats(); stats.FailureCount != 1 {
		t.Errorf("failure count = %d, want 1", stats.FailureCount)
	}
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.ReportErrors(context.Background(), "sess-1", &domain.ErrorReport{})
	if err == nil {
		t.Fatal("expected rate limit error")
	}
}
