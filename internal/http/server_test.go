package http

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"spendchart/internal/cache"
	"spendchart/internal/catalog"
	"spendchart/internal/chart"
	"spendchart/internal/ledger"
	"spendchart/internal/log"
	"spendchart/internal/services"
)

func newTestServer(t *testing.T, perMinute int) *Server {
	t.Helper()
	n := 0
	l := ledger.New(ledger.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("exp-%d", n)
	}))
	quiet := log.New(log.Config{Output: io.Discard})
	svc := services.NewExpenseService(l, catalog.Default(),
		services.WithLogger(quiet),
		services.WithProjectionCache(cache.NewLRUCache[chart.Projection](8, time.Minute)),
	)
	srv := NewServer(":0", svc, Options{RateLimitPerMinute: perMinute, Logger: quiet})
	t.Cleanup(srv.rateLimiter.Stop)
	return srv
}

func do(srv *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(srv *Server, category, amount, date string) *httptest.ResponseRecorder {
	form := url.Values{"category": {category}, "amount": {amount}, "date": {date}}
	return do(srv, http.MethodPost, "/expenses", "application/x-www-form-urlencoded", form.Encode())
}

func postJSON(srv *Server, body string) *httptest.ResponseRecorder {
	return do(srv, http.MethodPost, "/api/expenses", "application/json", body)
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, 0)

	rr := do(srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Expense Tracker", `<option value="Food">`, `id="expense-chart"`, "$0.00", `type="date"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}
	if !strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_") {
		t.Error("request id not set")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"status":"`) {
			t.Fatalf("%s body=%s", path, rr.Body.String())
		}
	}

	if rr := do(srv, http.MethodGet, "/static/app.js", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t, 0)

	rr := do(srv, http.MethodGet, "/expenses", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tests := []struct {
		name     string
		category string
		amount   string
		date     string
		status   int
		message  string
	}{
		{"invalid amount", "Food", "abc", "2024-01-05", http.StatusUnprocessableEntity, "Please enter a valid expense amount."},
		{"negative amount", "Food", "-3", "2024-01-05", http.StatusUnprocessableEntity, "Please enter a valid expense amount."},
		{"huge exponent", "Food", "1e50000000", "2024-01-05", http.StatusUnprocessableEntity, "Please enter a valid expense amount."},
		{"tiny exponent", "Food", "1e-50000000", "2024-01-05", http.StatusUnprocessableEntity, "Please enter a valid expense amount."},
		{"missing date", "Food", "12.50", "", http.StatusUnprocessableEntity, "Please select a valid date for the expense."},
		{"amount checked first", "Food", "", "", http.StatusUnprocessableEntity, "Please enter a valid expense amount."},
		{"unknown category", "Yachts", "12.50", "2024-01-05", http.StatusBadRequest, msgUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(srv, tt.category, tt.amount, tt.date)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d", rr.Code, tt.status)
			}
			if !strings.Contains(rr.Body.String(), tt.message) {
				t.Fatalf("body=%q, want %q", rr.Body.String(), tt.message)
			}
			trigger := rr.Header().Get("HX-Trigger")
			if strings.Contains(trigger, EventLedgerChanged) || strings.Contains(trigger, EventFormReset) {
				t.Fatalf("rejected input must not trigger a refresh: %s", trigger)
			}
			if !strings.Contains(trigger, `"show-notification"`) || !strings.Contains(trigger, `"type":"error"`) {
				t.Fatalf("rejected input should raise an error notification: %s", trigger)
			}
		})
	}
	if srv.service.Count() != 0 {
		t.Fatalf("rejected input changed the ledger: %d records", srv.service.Count())
	}

	rr = postForm(srv, "Food", "12.50", "2024-01-05")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	row := rr.Body.String()
	for _, want := range []string{`id="expense-exp-1"`, "Food", "$12.50", "01/05/2024", `hx-delete="/expenses/exp-1"`} {
		if !strings.Contains(row, want) {
			t.Errorf("row missing %q: %s", want, row)
		}
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"expense:created"`, `"ledger:changed"`, `"form:reset"`, `"total":"12.50"`, `"count":1`, `"type":"success"`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}

	rr = do(srv, http.MethodGet, "/ui/total", "", "")
	if !strings.Contains(rr.Body.String(), "$12.50") {
		t.Fatalf("total partial=%q", rr.Body.String())
	}
	rr = do(srv, http.MethodGet, "/ui/expenses", "", "")
	if strings.Count(rr.Body.String(), "<tr") != 1 {
		t.Fatalf("rows partial=%q", rr.Body.String())
	}
}

func TestDeleteExpenseHTMX(t *testing.T) {
	srv := newTestServer(t, 0)
	postForm(srv, "Food", "12.50", "2024-01-05")
	postForm(srv, "Transport", "7.25", "2024-01-06")

	rr := do(srv, http.MethodDelete, "/expenses/exp-1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"total":"7.25"`, `"count":1`, `"type":"info"`} {
		if !strings.Contains(trigger, want) {
			t.Fatalf("HX-Trigger missing %q: %s", want, trigger)
		}
	}

	rr = do(srv, http.MethodDelete, "/expenses/exp-1", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if trigger := rr.Header().Get("HX-Trigger"); strings.Contains(trigger, EventLedgerChanged) {
		t.Fatalf("absent removal must not announce a change: %s", trigger)
	}
	if got := srv.service.Total().Cents; got != 725 {
		t.Fatalf("absent removal changed total to %d", got)
	}
}

func TestChartScenario(t *testing.T) {
	srv := newTestServer(t, 0)

	for _, body := range []string{
		`{"category":"Food","amount":"12.50","date":"2024-01-05"}`,
		`{"category":"Transport","amount":7.25,"date":"2024-01-05"}`,
		`{"category":"Food","amount":"3.00","date":"2024-01-06"}`,
	} {
		if rr := postJSON(srv, body); rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	var list expenseListJSON
	rr := do(srv, http.MethodGet, "/api/expenses", "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != "22.75" || list.Count != 3 {
		t.Fatalf("list total=%s count=%d", list.Total, list.Count)
	}

	cfg := fetchChart(t, srv)
	if !slices.Equal(cfg.Data.Labels, []string{"01/05/2024", "01/06/2024"}) {
		t.Fatalf("labels=%v", cfg.Data.Labels)
	}
	want := map[string][]float64{"Food": {12.5, 3}, "Transport": {7.25, 0}}
	if len(cfg.Data.Datasets) != len(want) {
		t.Fatalf("datasets=%d", len(cfg.Data.Datasets))
	}
	for _, ds := range cfg.Data.Datasets {
		if !slices.Equal(ds.Data, want[ds.Label]) {
			t.Errorf("%s data=%v, want %v", ds.Label, ds.Data, want[ds.Label])
		}
	}

	if rr := do(srv, http.MethodDelete, "/api/expenses/exp-1", "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/api/expenses", "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != "10.25" || list.Count != 2 {
		t.Fatalf("after delete total=%s count=%d", list.Total, list.Count)
	}

	cfg = fetchChart(t, srv)
	want = map[string][]float64{"Transport": {7.25, 0}, "Food": {0, 3}}
	for _, ds := range cfg.Data.Datasets {
		if !slices.Equal(ds.Data, want[ds.Label]) {
			t.Errorf("after delete %s data=%v, want %v", ds.Label, ds.Data, want[ds.Label])
		}
	}
	if cfg.Data.Datasets[0].Label != "Transport" {
		t.Errorf("series order should follow the remaining records, got %s first", cfg.Data.Datasets[0].Label)
	}

	if rr := do(srv, http.MethodDelete, "/api/expenses/exp-1", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("absent delete status=%d", rr.Code)
	}
}

func fetchChart(t *testing.T, srv *Server) chart.LineConfig {
	t.Helper()
	rr := do(srv, http.MethodGet, "/api/chart", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status=%d", rr.Code)
	}
	var cfg chart.LineConfig
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if cfg.Type != "line" {
		t.Fatalf("chart type=%q", cfg.Type)
	}
	return cfg
}

func TestCreateExpenseAPIErrors(t *testing.T) {
	srv := newTestServer(t, 0)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"bad amount", `{"category":"Food","amount":"0","date":"2024-01-05"}`, http.StatusUnprocessableEntity, "validation_failed", "amount"},
		{"bad date", `{"category":"Food","amount":"1","date":"05/01/2024"}`, http.StatusUnprocessableEntity, "validation_failed", "date"},
		{"unknown category", `{"category":"","amount":"1","date":"2024-01-05"}`, http.StatusBadRequest, "unknown_category", "category"},
		{"malformed", `{"category":`, http.StatusBadRequest, "bad_request", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(srv, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d", rr.Code, tt.status)
			}
			var got apiError
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Error != tt.code || got.Field != tt.field {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestEmptyChart(t *testing.T) {
	srv := newTestServer(t, 0)
	rr := do(srv, http.MethodGet, "/api/chart", "", "")
	if !strings.Contains(rr.Body.String(), `"labels":[]`) || !strings.Contains(rr.Body.String(), `"datasets":[]`) {
		t.Fatalf("empty chart body=%s", rr.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		if rr := postForm(srv, "Food", "1", "2024-01-05"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := postForm(srv, "Food", "1", "2024-01-05")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"warning"`) {
		t.Fatalf("HX-Trigger=%s", rr.Header().Get("HX-Trigger"))
	}
	if srv.service.Count() != 2 {
		t.Fatalf("limited request reached the ledger")
	}
	if rr := do(srv, http.MethodGet, "/ui/total", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, 0)
	postForm(srv, "Food", "12.50", "2024-01-05")
	do(srv, http.MethodGet, "/api/chart", "", "")
	do(srv, http.MethodGet, "/api/chart", "", "")

	rr := do(srv, http.MethodGet, "/metrics", "", "")
	body := rr.Body.String()
	for _, want := range []string{
		"ledger_total_cents 1250",
		"ledger_expenses 1",
		"projection_cache_hits_total 1",
		"projection_cache_misses_total 1",
		"# TYPE http_requests_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestTemplatesMissing(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.templates = nil

	if rr := do(srv, http.MethodGet, "/", "", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("index status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/readyz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	if rr := postForm(srv, "Food", "1", "2024-01-05"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("create status=%d", rr.Code)
	}
	if srv.service.Count() != 0 {
		t.Fatal("create must not mutate when the row cannot be rendered")
	}
}
