package ancillary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLineItems_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/reservations/42/charges" {
			t.Fatalf("path = %s, want /api/reservations/42/charges", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"source":"restaurant","reference":"Q-17","description":"Dinner","amount":"350.50"},
			{"source":"minibar","reference":"MB-3","description":"Water","amount":149.5}
		]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	items, err := client.LineItems(ctx, 42)
	if err != nil {
		t.Fatalf("LineItems error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Reference != "Q-17" || items[0].Amount.String() != "350.5" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Source != "minibar" || items[1].Amount.String() != "149.5" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestLineItems_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.LineItems(ctx, 1)
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rl.RetryAfter < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", rl.RetryAfter)
	}
}

func TestLineItems_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	items, err := NewClient(ts.URL).LineItems(context.Background(), 1)
	if err != nil {
		t.Fatalf("LineItems error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items for 204, got %+v", items)
	}
}

func TestLineItems_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL).LineItems(context.Background(), 1); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestLineItems_RejectsNegativeAmount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"source":"restaurant","reference":"R-1","amount":"-10"}]`))
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL).LineItems(context.Background(), 1); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestLineItems_NotConfigured(t *testing.T) {
	if _, err := NewClient("").LineItems(context.Background(), 1); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
