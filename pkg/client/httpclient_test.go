package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roombook/pkg/middleware"
)

func TestHttpClient(t *testing.T) {
	var gotKey, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/reservations":
			gotKey = r.Header.Get(middleware.DefaultIdempotencyHeader)
			gotType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"r1"}}`))
		default:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"room is taken","code":"OVERLAP_CONFLICT","details":{"room_id":"orion"}}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewHttpClient(srv.URL + "/")

	if err := c.WaitForHealthy(ctx, time.Second); err != nil {
		t.Fatalf("WaitForHealthy: %v", err)
	}

	resp, err := c.POSTIdempotent(ctx, "/api/v1/reservations", map[string]string{"room_id": "orion"}, "k1")
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if err := resp.Err(); err != nil {
		t.Fatalf("unexpected API error: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := resp.DecodeData(&created); err != nil || created.ID != "r1" {
		t.Errorf("DecodeData = %+v, %v", created, err)
	}
	if gotKey != "k1" || gotType != "application/json" {
		t.Errorf("headers = key %q, content type %q", gotKey, gotType)
	}

	resp, err = c.DELETE(ctx, "/api/v1/reservations/r1")
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	var apiErr *APIError
	if !errors.As(resp.Err(), &apiErr) {
		t.Fatalf("Err() = %v, want *APIError", resp.Err())
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "OVERLAP_CONFLICT" || apiErr.Details["room_id"] != "orion" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestWaitForHealthy_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if err := NewHttpClient(srv.URL).WaitForHealthy(context.Background(), 100*time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}
