package api

import (
	"errors"
	"net/http"
	"time"

	"staffplan/internal/metrics"
	"staffplan/internal/model"
	"staffplan/internal/roster"
	"staffplan/internal/store"
)

// CreateRunHandler handles POST /v1/runs. Runs queue for the background
// worker by default; ?wait=1 builds the schedule inline and returns the
// finished run with its metrics.
func (s *Server) CreateRunHandler(w http.ResponseWriter, r *http.Request) {
	var req model.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.PlanID == "" || req.MethodID == "" {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid run request", "planId and methodId are required", r.URL.Path)
		return
	}
	if _, err := s.Store.GetSchedulePlan(r.Context(), req.PlanID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "unknown plan", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}

	run := model.ScheduleRun{
		PlanID:     req.PlanID,
		MethodID:   req.MethodID,
		RunGroupID: req.RunGroupID,
		Label:      req.Label,
	}
	wait := r.URL.Query().Get("wait") == "1"
	if wait {
		// Created already running so the worker cannot claim it too.
		now := time.Now().UTC()
		run.Status = model.RunRunning
		run.StartedAt = &now
	}

	created, err := s.Store.CreateScheduleRun(r.Context(), run)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	if !wait {
		s.log.Info().Str("runId", created.ID).Str("planId", created.PlanID).Msg("run queued")
		writeJSON(w, http.StatusAccepted, created)
		return
	}

	s.Publish(created.ID, "run.started", map[string]any{"planId": created.PlanID, "methodId": created.MethodID})
	start := time.Now()
	metric, execErr := s.Sched.Execute(r.Context(), created.ID)
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	final, err := s.Store.GetScheduleRun(r.Context(), created.ID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	if execErr != nil {
		metrics.RunsTotal.WithLabelValues(model.RunFailed).Inc()
		s.Publish(created.ID, "run.failed", map[string]any{"error": execErr.Error()})
		writeJSON(w, http.StatusOK, map[string]any{"run": final})
		return
	}
	metrics.RunsTotal.WithLabelValues(model.RunCompleted).Inc()
	s.Publish(created.ID, "run.completed", map[string]any{
		"coveragePercent": metric.CoveragePercent,
		"gapMinutes":      metric.GapMinutes,
		"violationsCount": metric.ViolationsCount,
	})
	writeJSON(w, http.StatusOK, map[string]any{"run": final, "metric": metric})
}

func (s *Server) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	run, err := s.Store.GetScheduleRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown run", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// shiftView embeds a shift's segments for the roster views.
type shiftView struct {
	model.Shift
	Segments []model.ShiftSegment `json:"segments"`
}

func (s *Server) RunShiftsHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if _, err := s.Store.GetScheduleRun(r.Context(), runID); errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown run", r.URL.Path)
		return
	}
	shifts, err := s.Store.GetShifts(r.Context(), runID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	segments, err := s.Store.GetShiftSegments(r.Context(), runID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	byShift := map[string][]model.ShiftSegment{}
	for _, seg := range segments {
		byShift[seg.ShiftID] = append(byShift[seg.ShiftID], seg)
	}
	items := make([]shiftView, 0, len(shifts))
	for _, sh := range shifts {
		items = append(items, shiftView{Shift: sh, Segments: byShift[sh.ID]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	metric, err := s.Store.GetScheduleMetrics(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no metrics for run", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, metric)
}

func (s *Server) RunViolationsHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if _, err := s.Store.GetScheduleRun(r.Context(), runID); errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown run", r.URL.Path)
		return
	}
	items, err := s.Store.GetScheduleViolations(r.Context(), runID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RunComparisonHandler handles GET /v1/run-groups/{id}/comparison with the
// A/B metric table for the group.
func (s *Server) RunComparisonHandler(w http.ResponseWriter, r *http.Request) {
	cmp, err := roster.Compare(r.Context(), s.Store, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no runs in group", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Comparison failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
