package api

import (
	"errors"
	"net/http"

	"staffplan/internal/metrics"
	"staffplan/internal/model"
	"staffplan/internal/staffing"
	"staffplan/internal/store"
)

// CalcHandler handles POST /v1/calc. Validation failures come back as a
// 422 with the field errors in the calculation result, never as a bare
// problem document.
func (s *Server) CalcHandler(w http.ResponseWriter, r *http.Request) {
	var req model.CalcRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	res := staffing.Calculate(req)
	if len(res.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reference data listings

func (s *Server) SkillsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.GetSkills(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) StaffHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.GetAllStaff(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) ShiftTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.GetShiftTemplates(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) OptimizationMethodsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.GetOptimizationMethods(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Store.GetSchedulePlan(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown plan", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GenerateCoverageHandler handles POST /v1/plans/{id}/coverage. The body
// carries the base staffing request spread across the plan's interval
// grid; generated rows replace the plan's previous requirement set.
func (s *Server) GenerateCoverageHandler(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	var base model.CalcRequest
	if err := decodeJSON(r, &base); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}

	rows, err := s.Cov.Generate(r.Context(), planID, base)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Coverage generation failed", err.Error(), r.URL.Path)
		return
	}

	metrics.CoverageRuns.Inc()
	metrics.CoverageRows.Add(float64(len(rows)))
	writeJSON(w, http.StatusOK, map[string]any{"planId": planID, "count": len(rows)})
}

func (s *Server) GetCoverageHandler(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	if _, err := s.Store.GetSchedulePlan(r.Context(), planID); errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown plan", r.URL.Path)
		return
	}
	rows, err := s.Store.GetCoverageRequirements(r.Context(), planID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}
