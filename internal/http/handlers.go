package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stima/internal/core"
	"stima/internal/estimator"
	applog "stima/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports store reachability and model availability. A missing
// model degrades the service but the store keeps serving.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

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

	if n, err := s.store.Count(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = map[string]any{"status": "ok", "observations": n}
	}

	if u, ok := s.estimator.(estimator.Unavailable); ok {
		checks["model"] = fmt.Sprintf("unavailable: %v", u.Err)
		if status == "ready" {
			status = "degraded"
		}
	} else {
		checks["model"] = map[string]any{"status": "ok", "features": len(s.estimator.FeatureNames())}
	}

	NewHTMXResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_response_time_avg_ms Average response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_ms gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_ms %d\n\n", traceMetrics.AverageResponseTimeMs)

	fmt.Fprintf(w, "# HELP observations_created_total Total number of observations created\n")
	fmt.Fprintf(w, "# TYPE observations_created_total counter\n")
	fmt.Fprintf(w, "observations_created_total %d\n\n", s.appMetrics.observationsCreated.Load())

	fmt.Fprintf(w, "# HELP predictions_total Total number of estimates served\n")
	fmt.Fprintf(w, "# TYPE predictions_total counter\n")
	fmt.Fprintf(w, "predictions_total %d\n\n", s.appMetrics.predictions.Load())

	fmt.Fprintf(w, "# HELP prediction_errors_total Total number of failed predictions\n")
	fmt.Fprintf(w, "# TYPE prediction_errors_total counter\n")
	fmt.Fprintf(w, "prediction_errors_total %d\n\n", s.appMetrics.predictionErrors.Load())

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Total requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", rateLimitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

type featureField struct {
	estimator.FeatureSpec
}

// featureFields returns form fields in the estimator's feature order, using
// the published hints where one exists.
func featureFields(names []string) []featureField {
	specs := make(map[string]estimator.FeatureSpec, len(estimator.Specs))
	for _, sp := range estimator.Specs {
		specs[sp.Name] = sp
	}
	out := make([]featureField, 0, len(names))
	for _, n := range names {
		sp, ok := specs[n]
		if !ok {
			sp = estimator.FeatureSpec{Name: n, Label: n, Step: 0.01}
		}
		out = append(out, featureField{FeatureSpec: sp})
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found").Write(w)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Features   []featureField
		Categories []core.Category
		Today      string
		MaxNotes   int
	}{
		Features:   featureFields(s.estimator.FeatureNames()),
		Categories: core.Categories(),
		Today:      time.Now().Format(core.DateLayout),
		MaxNotes:   core.MaxNotesLength,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, "error rendering page", http.StatusInternalServerError)
	}
}

// observationJSON is the wire form of an observation.
type observationJSON struct {
	ID       int64   `json:"id"`
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	Notes    string  `json:"notes"`
}

func toJSON(o core.Observation) observationJSON {
	return observationJSON{
		ID:       o.ID,
		Date:     o.Date.String(),
		Value:    o.Value,
		Category: string(o.Category),
		Notes:    o.Notes,
	}
}

// handleAPIObservations lists every observation, newest first.
func (s *Server) handleAPIObservations(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	items, err := s.reports.ListAll(r.Context())
	if err != nil {
		s.structured.LogError(r.Context(), "Failed to list observations", err, applog.OpList, nil)
		errorResponse(err, true).Write(w)
		return
	}
	core.SortByDateDesc(items)

	out := make([]observationJSON, len(items))
	for i, o := range items {
		out[i] = toJSON(o)
	}
	NewHTMXResponse().JSON(out).Write(w)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	summary, err := s.reports.SummarizeByCategory(r.Context())
	if err != nil {
		s.structured.LogError(r.Context(), "Failed to summarize observations", err, applog.OpSummary, nil)
		errorResponse(err, true).Write(w)
		return
	}
	if summary == nil {
		summary = core.Summary{}
	}
	NewHTMXResponse().JSON(summary).Write(w)
}

// handleAPISeries returns the chart series grouped by category.
func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	points, err := s.reports.SeriesForChart(r.Context())
	if err != nil {
		s.structured.LogError(r.Context(), "Failed to build chart series", err, applog.OpSeries, nil)
		errorResponse(err, true).Write(w)
		return
	}
	series := core.GroupSeries(points)
	if series == nil {
		series = []core.ChartSeries{}
	}
	NewHTMXResponse().JSON(series).Write(w)
}

// handleReport renders the report partial: raw rows, per-category summary
// and chart data.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	items, err := s.reports.ListAll(ctx)
	if err != nil {
		s.structured.LogError(ctx, "Failed to list observations", err, applog.OpList, nil)
		errorResponse(err, false).Write(w)
		return
	}
	summary, err := s.reports.SummarizeByCategory(ctx)
	if err != nil {
		s.structured.LogError(ctx, "Failed to summarize observations", err, applog.OpSummary, nil)
		errorResponse(err, false).Write(w)
		return
	}
	points, err := s.reports.SeriesForChart(ctx)
	if err != nil {
		s.structured.LogError(ctx, "Failed to build chart series", err, applog.OpSeries, nil)
		errorResponse(err, false).Write(w)
		return
	}

	core.SortByDateDesc(items)
	chart, err := json.Marshal(core.GroupSeries(points))
	if err != nil {
		s.structured.LogError(ctx, "Failed to encode chart series", err, applog.OpRender, nil)
		chart = []byte("[]")
	}

	data := struct {
		Items     []core.Observation
		Summary   core.Summary
		ChartJSON string
	}{
		Items:     items,
		Summary:   summary,
		ChartJSON: string(chart),
	}

	if s.templates == nil {
		InternalServerError("Error rendering report").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "report.html", data); err != nil {
		s.logger.ErrorContext(ctx, "Template execution error", "error", err, "template", "report.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering report</div>`))
	}
}
