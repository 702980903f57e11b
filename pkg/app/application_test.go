package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roombook/internal/booking"
	"roombook/internal/storage/memstore"
	"roombook/pkg/client"
	"roombook/pkg/config"
	"roombook/pkg/logger"
	"roombook/pkg/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		StorageBackend:    config.BackendMemory,
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		BookingTxTimeout:  time.Second,
		Log: logger.New(logger.Config{
			Level:     "info",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		Client: client.NewClient(),
	}
}

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	a := NewApplication(testConfig(), memstore.New(), booking.WithClock(func() time.Time { return now }))
	if err := a.SetApp(); err != nil {
		t.Fatalf("SetApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a.Handler()
}

type response struct {
	Data map[string]any `json:"data"`
	Code string         `json:"code"`
}

func call(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestApplication_BookingFlow(t *testing.T) {
	h := newTestApp(t)

	w, room := call(t, h, http.MethodPost, "/api/v1/rooms", `{"name":"Orion","capacity":4}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create room = %d %s", w.Code, w.Body.String())
	}
	roomID, _ := room.Data["id"].(string)

	w, _ = call(t, h, http.MethodPost, "/api/v1/customers", `{"email":"Ada@Example.com","name":" Ada ","phone":"+1 650 253 0000"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create customer = %d %s", w.Code, w.Body.String())
	}

	body := `{"room_id":"` + roomID + `","customer_email":"ada@example.com","start_utc":"2030-01-02T10:00:00Z","end_utc":"2030-01-02T11:00:00Z"}`
	w, first := call(t, h, http.MethodPost, "/api/v1/reservations", body, middleware.DefaultIdempotencyHeader, "abc")
	if w.Code != http.StatusCreated {
		t.Fatalf("create reservation = %d %s", w.Code, w.Body.String())
	}

	w, replay := call(t, h, http.MethodPost, "/api/v1/reservations", body, middleware.DefaultIdempotencyHeader, "abc")
	if w.Code != http.StatusCreated || replay.Data["id"] != first.Data["id"] {
		t.Errorf("replay = %d %v, want 201 %v", w.Code, replay.Data["id"], first.Data["id"])
	}

	overlap := `{"room_id":"` + roomID + `","customer_email":"ada@example.com","start_utc":"2030-01-02T10:30:00Z","end_utc":"2030-01-02T11:30:00Z"}`
	w, resp := call(t, h, http.MethodPost, "/api/v1/reservations", overlap)
	if w.Code != http.StatusConflict || resp.Code != booking.CodeOverlapConflict {
		t.Errorf("overlap = %d %s, want 409 %s", w.Code, resp.Code, booking.CodeOverlapConflict)
	}

	w, _ = call(t, h, http.MethodGet, "/api/v1/rooms/"+roomID+"/reservations", "")
	if w.Code != http.StatusOK {
		t.Errorf("list by room = %d", w.Code)
	}

	w, _ = call(t, h, http.MethodDelete, "/api/v1/rooms/"+roomID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete room = %d %s", w.Code, w.Body.String())
	}
	w, resp = call(t, h, http.MethodGet, "/api/v1/reservations/"+first.Data["id"].(string), "")
	if w.Code != http.StatusNotFound || resp.Code != booking.CodeReservationNotFound {
		t.Errorf("reservation after room removal = %d %s", w.Code, resp.Code)
	}
}

func TestApplication_Middleware(t *testing.T) {
	h := newTestApp(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    []string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "ready pings storage", method: http.MethodGet, path: "/ready", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nothing", wantStatus: http.StatusNotFound},
		{
			name:       "wrong content type",
			method:     http.MethodPost,
			path:       "/api/v1/rooms",
			body:       `{"name":"Atlas","capacity":6}`,
			headers:    []string{"Content-Type", "text/plain"},
			wantStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := call(t, h, tt.method, tt.path, tt.body, tt.headers...)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig()
	store, err := OpenStore(cfg)
	if err != nil || store == nil {
		t.Fatalf("OpenStore(memory) = %v, %v", store, err)
	}

	cfg.StorageBackend = "sqlite"
	if _, err := OpenStore(cfg); err == nil {
		t.Error("unknown backend should fail")
	}
}
