package hrsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, refreshes *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		n := refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + string(rune('0'+n)),
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, api http.HandlerFunc, refreshes *atomic.Int64) *Client {
	t.Helper()
	tokenSrv := newTokenServer(t, refreshes)
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	tokens := NewTokenSource(tokenSrv.URL, "cid", "csecret", "rtok")
	return NewClient(apiSrv.URL, tokens, WithCallInterval(time.Millisecond))
}

func TestClientFetchesEmployees(t *testing.T) {
	var refreshes atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken tok-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Employee{
			{ID: "emp-1", Email: "a@example.com", Status: "active"},
			{ID: "emp-2", Email: "b@example.com", Status: "active"},
		})
	}, &refreshes)

	employees, err := client.Employees(context.Background())
	if err != nil {
		t.Fatalf("Employees: %v", err)
	}
	if len(employees) != 2 || employees[0].ID != "emp-1" {
		t.Fatalf("unexpected employees: %+v", employees)
	}
	if refreshes.Load() != 1 {
		t.Fatalf("expected a single token refresh, got %d", refreshes.Load())
	}
}

func TestClientRetriesOnceAfter401(t *testing.T) {
	var refreshes atomic.Int64
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]Employee{{ID: "emp-1"}})
	}, &refreshes)

	employees, err := client.Employees(context.Background())
	if err != nil {
		t.Fatalf("Employees after retry: %v", err)
	}
	if len(employees) != 1 {
		t.Fatalf("unexpected employees: %+v", employees)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly 2 API calls, got %d", calls.Load())
	}
	if refreshes.Load() != 2 {
		t.Fatalf("expected a refresh per attempt after invalidation, got %d", refreshes.Load())
	}
}

func TestClientGivesUpAfterSecond401(t *testing.T) {
	var refreshes atomic.Int64
	var calls atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, &refreshes)

	_, err := client.Employees(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly 2 API calls, got %d", calls.Load())
	}
}

func TestClientSpacesCalls(t *testing.T) {
	var refreshes atomic.Int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Employee{})
	}, &refreshes)

	interval := 50 * time.Millisecond
	WithCallInterval(interval)(client)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Employees(context.Background()); err != nil {
			t.Fatalf("Employees: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Fatalf("three calls finished in %v, expected at least %v", elapsed, 2*interval)
	}
}

func TestTokenSourceCachesUntilExpiry(t *testing.T) {
	var refreshes atomic.Int64
	srv := newTokenServer(t, &refreshes)
	tokens := NewTokenSource(srv.URL, "cid", "csecret", "rtok")

	for i := 0; i < 3; i++ {
		if _, err := tokens.Token(context.Background()); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if refreshes.Load() != 1 {
		t.Fatalf("cached token should be reused, refreshes = %d", refreshes.Load())
	}

	tokens.Invalidate()
	if _, err := tokens.Token(context.Background()); err != nil {
		t.Fatalf("Token after invalidate: %v", err)
	}
	if refreshes.Load() != 2 {
		t.Fatalf("invalidate should force a refresh, refreshes = %d", refreshes.Load())
	}
}

func TestTokenSourceAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tokens := NewTokenSource(srv.URL, "cid", "csecret", "bad-rtok")
	if _, err := tokens.Token(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
