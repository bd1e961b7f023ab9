package http

import (
	"fmt"
	"net/http"
	"time"

	"spendchart/internal/core"
	"spendchart/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the page can be rendered.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.service == nil {
		checks["ledger"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = map[string]any{
			"status":  "ok",
			"records": s.service.Count(),
			"version": s.service.Version(),
		}
		checks["categories"] = len(s.service.Catalog().Categories())
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.service.CacheStats()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "HTTP responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("ledger_expenses", "Expenses currently in the ledger", "gauge", s.service.Count())
	metric("ledger_total_cents", "Running total of the ledger in cents", "gauge", s.service.Total().Cents)
	metric("ledger_version", "Number of ledger mutations", "counter", s.service.Version())
	metric("projection_cache_hits_total", "Projection cache hits", "counter", cacheStats.Hits)
	metric("projection_cache_misses_total", "Projection cache misses", "counter", cacheStats.Misses)
	metric("projection_cache_evictions_total", "Projection cache evictions", "counter", cacheStats.Evictions)
	metric("projection_cache_entries", "Current projection cache entries", "gauge", cacheStats.Size)
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "Requests blocked by the security detector", "counter", securityMetrics.BlockedRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}

type indexData struct {
	Categories []string
	Today      string
	Expenses   []core.Expense
	Total      core.Money
	Count      int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	snap := s.service.Snapshot(r.Context())
	data := indexData{
		Categories: s.service.Catalog().Categories(),
		Today:      time.Now().Format(core.InputDateLayout),
		Expenses:   snap.Expenses,
		Total:      snap.Summary.Total,
		Count:      snap.Summary.Count,
	}

	s.render(w, r, "index.html", data)
}
