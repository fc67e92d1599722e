package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage/memory"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard, Component: applog.ComponentHTTP})
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := services.NewExpenseService(store, services.WithClock(func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	}))
	srv := NewServer(":0", svc, append([]ServerOption{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Expense Tracker") {
		t.Fatalf("index body missing heading")
	}
	if !strings.Contains(rr.Body.String(), `value="2`) {
		t.Errorf("index should prefill today's date")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/static/app.js", ""); rr.Code != http.StatusOK {
		t.Errorf("static asset status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d, want 404", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/expenses", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing frame options header")
	}
	if id := rr.Header().Get(RequestIDHeader); !strings.HasPrefix(id, "req_") {
		t.Errorf("request id = %q, want req_ prefix", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("incoming request id not echoed, got %q", got)
	}
}

func TestCreateListStatsScenario(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description":"Coffee","amount":2.75,"category":"Food","date":"2024-01-05"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[map[string]any](t, rr)
	if created["success"] != true {
		t.Fatalf("create success = %v", created["success"])
	}
	if id, _ := created["id"].(string); id == "" {
		t.Fatalf("create response missing id: %v", created)
	}

	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"description":"Book","amount":"12","category":"Fun","date":"2024-01-06"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create with string amount status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	list := decode[core.ExpenseList](t, rr)
	if len(list.Expenses) != 2 {
		t.Fatalf("len(expenses) = %d, want 2", len(list.Expenses))
	}
	if list.Expenses[0].Description != "Book" || list.Expenses[1].Description != "Coffee" {
		t.Errorf("expenses not sorted by date desc: %+v", list.Expenses)
	}
	if list.Total != 14.75 {
		t.Errorf("total = %v, want 14.75", list.Total)
	}

	rr = do(t, srv, http.MethodGet, "/api/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rr.Code)
	}
	stats := decode[[]map[string]any](t, rr)
	got := map[string]float64{}
	for _, s := range stats {
		got[s["_id"].(string)] = s["total"].(float64)
	}
	if got["Food"] != 2.75 || got["Fun"] != 12 || len(got) != 2 {
		t.Errorf("stats = %v", got)
	}
}

func TestCreateAcceptsLongDescription(t *testing.T) {
	srv, store := newTestServer(t)

	for _, desc := range []string{strings.Repeat("x", 201), strings.Repeat("é", 101)} {
		body, _ := json.Marshal(map[string]any{"description": desc, "amount": 1, "category": "Misc"})
		rr := do(t, srv, http.MethodPost, "/api/expenses", string(body))
		if rr.Code != http.StatusOK {
			t.Fatalf("len %d: status=%d body=%s", len(desc), rr.Code, rr.Body.String())
		}
	}
	stored, _ := store.List(context.Background())
	if len(stored) != 2 {
		t.Fatalf("stored %d expenses, want 2", len(stored))
	}
}

func TestRequestIDReachesServiceLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf, Level: slog.LevelDebug})
	srv, _ := newTestServer(t, WithLogger(logger))

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"description":"Tea","amount":3,"category":"Food"}`))
	req.Header.Set(RequestIDHeader, "trace-42")
	srv.Handler.ServeHTTP(httptest.NewRecorder(), req)
	srv.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/expenses/Tea", nil))

	var created, completed, deleted bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		switch entry["msg"] {
		case "Expense created":
			created = true
			if entry["request_id"] != "trace-42" || entry["component"] != "expense" {
				t.Errorf("service log = %v", entry)
			}
			if entry["expense_description"] != "Tea" || entry["category"] != "Food" {
				t.Errorf("service log missing expense fields: %v", entry)
			}
		case "HTTP request completed":
			if entry["request_id"] == "trace-42" {
				completed = true
			}
		case "Delete by description":
			deleted = true
			if entry["deleted"] != true || entry["request_id"] == "trace-42" {
				t.Errorf("delete log = %v", entry)
			}
		}
	}
	if !created || !completed || !deleted {
		t.Fatalf("missing log lines in %q", buf.String())
	}
}

func TestCreateDefaultsDate(t *testing.T) {
	srv, store := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description":"Taxi","amount":8,"category":"Travel"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	items, _ := store.List(context.Background())
	if len(items) != 1 || items[0].Date != "2025-06-15" {
		t.Errorf("stored = %+v, want date 2025-06-15", items)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing description", `{"amount":1,"category":"Food"}`, "description"},
		{"blank description", `{"description":"  ","amount":1,"category":"Food"}`, "description"},
		{"missing amount", `{"description":"x","category":"Food"}`, "amount"},
		{"non numeric amount", `{"description":"x","amount":"abc","category":"Food"}`, "amount"},
		{"missing category", `{"description":"x","amount":1}`, "category"},
		{"non string date", `{"description":"x","amount":1,"category":"Food","date":20240101}`, "date"},
		{"malformed json", `{"description":`, ""},
		{"not an object", `[1,2,3]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t)

			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d, want 400 (body=%s)", rr.Code, rr.Body.String())
			}
			body := decode[ErrorBody](t, rr)
			if body.Success {
				t.Errorf("success = true on error")
			}
			if body.Error == "" {
				t.Errorf("error message empty")
			}
			if body.Field != tt.wantField {
				t.Errorf("field = %q, want %q", body.Field, tt.wantField)
			}

			items, _ := store.List(context.Background())
			if len(items) != 0 {
				t.Errorf("invalid input stored %d expenses", len(items))
			}
		})
	}
}

func TestDeleteByDescription(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	for i, d := range []string{"Coffee beans", "Coffee beans", "Tea"} {
		_ = store.Insert(ctx, core.Expense{ID: string(rune('a' + i)), Description: d, Amount: 1, Category: "Food", Date: "2024-01-01"})
	}

	rr := do(t, srv, http.MethodDelete, "/api/expenses/Coffee%20beans", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["success"] != true || body["deleted"] != true {
		t.Errorf("body = %v", body)
	}

	items, _ := store.List(ctx)
	if len(items) != 2 {
		t.Fatalf("remaining = %d, want 2 (one duplicate removed)", len(items))
	}

	rr = do(t, srv, http.MethodDelete, "/api/expenses/Missing", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("miss status=%d, want 200", rr.Code)
	}
	body = decode[map[string]any](t, rr)
	if body["success"] != true || body["deleted"] != false {
		t.Errorf("miss body = %v", body)
	}

	rr = do(t, srv, http.MethodDelete, "/api/expenses/coffee%20beans", "")
	if body := decode[map[string]any](t, rr); body["deleted"] != false {
		t.Errorf("delete should be case-sensitive, got %v", body)
	}
}

func TestDeleteByID(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	_ = store.Insert(ctx, core.Expense{ID: "e-1", Description: "Lunch", Amount: 9.5, Category: "Food", Date: "2024-02-01"})

	rr := do(t, srv, http.MethodDelete, "/api/expenses/id/e-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/expenses/id/e-1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Success {
		t.Errorf("404 body success = true")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/expenses"},
		{http.MethodPost, "/api/stats"},
		{http.MethodGet, "/api/expenses/Coffee"},
	} {
		rr := do(t, srv, tc.method, tc.path, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status=%d, want 405", tc.method, tc.path, rr.Code)
		}
	}
}

type brokenAPI struct{}

var errDown = errors.New("connection refused")

func (brokenAPI) List(context.Context) (core.ExpenseList, error) { return core.ExpenseList{}, errDown }
func (brokenAPI) Create(context.Context, core.ExpenseInput) (core.Expense, error) {
	return core.Expense{}, errDown
}
func (brokenAPI) DeleteByDescription(context.Context, string) (bool, error) { return false, errDown }
func (brokenAPI) DeleteByID(context.Context, string) (bool, error)          { return false, errDown }
func (brokenAPI) Stats(context.Context) ([]core.CategoryTotal, error)       { return nil, errDown }
func (brokenAPI) Ping(context.Context) error                                { return errDown }

func TestStorageFailures(t *testing.T) {
	srv := NewServer(":0", brokenAPI{}, WithLogger(quietLogger()))
	defer srv.Shutdown(context.Background())

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/expenses", ""},
		{http.MethodPost, "/api/expenses", `{"description":"x","amount":1,"category":"y"}`},
		{http.MethodDelete, "/api/expenses/x", ""},
		{http.MethodDelete, "/api/expenses/id/x", ""},
		{http.MethodGet, "/api/stats", ""},
	} {
		rr := do(t, srv, tc.method, tc.path, tc.body)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status=%d, want 500", tc.method, tc.path, rr.Code)
			continue
		}
		if body := decode[ErrorBody](t, rr); body.Success || body.Error == "" {
			t.Errorf("%s %s body = %+v", tc.method, tc.path, body)
		}
		if strings.Contains(rr.Body.String(), errDown.Error()) {
			t.Errorf("%s %s leaked internal error", tc.method, tc.path)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d, want 503", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d, want 200", rr.Code)
	}
}

func TestRateLimitMutatingRequests(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))
	body := `{"description":"x","amount":1,"category":"y"}`

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}

	rr := do(t, srv, http.MethodPost, "/api/expenses", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After header")
	}

	for i := 0; i < 5; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be rate limited, status=%d", rr.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/expenses", `{"description":"x","amount":1,"category":"y"}`)
	do(t, srv, http.MethodDelete, "/api/expenses/x", "")
	do(t, srv, http.MethodGet, "/api/expenses", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	out := rr.Body.String()
	for _, want := range []string{
		"expensetracker_expenses_created_total 1",
		"expensetracker_expenses_deleted_total 1",
		`expensetracker_http_requests_total{method="GET",route="GET /api/expenses",status="200"} 1`,
		"expensetracker_http_request_duration_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
