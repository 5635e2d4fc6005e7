package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rackdiff/internal/imaging"
	"rackdiff/internal/inventory"
	"rackdiff/internal/logging"
	"rackdiff/internal/report"
	"rackdiff/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadSize = 32 << 20 // 32 MB for the two images combined

// CompareResponse is returned after a successful comparison.
type CompareResponse struct {
	SessionID   string  `json:"session_id"`
	Score       float64 `json:"ssim_score"`
	ChangeCount int     `json:"change_count"`
	ResultsURL  string  `json:"results_url"`
}

// handleCompare accepts a multipart form with "before" and "after" image
// files, runs the detection pipeline, and persists the result under a
// fresh session id.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "upload too large or invalid form")
		return
	}

	beforeData, err := formImage(r, "before")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	afterData, err := formImage(r, "after")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := uuid.NewString()

	cmp, err := s.detector.Compare(sessionID, beforeData, afterData)
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) || errors.Is(err, imaging.ErrEmptyImage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Error("compare: %v", err)
		respondError(w, http.StatusInternalServerError, "comparison failed")
		return
	}

	if err := s.sessions.SaveChanges(cmp.Set); err != nil {
		logging.Error("compare: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to persist results")
		return
	}
	if err := s.sessions.SaveArtifacts(cmp); err != nil {
		logging.Error("compare: artifacts: %v", err)
	}
	if err := s.sessions.SaveUploads(sessionID, beforeData, afterData, s.cfg.MaxDimension, s.cfg.CompressionQuality); err != nil {
		logging.Error("compare: uploads: %v", err)
	}

	respondJSON(w, http.StatusOK, CompareResponse{
		SessionID:   sessionID,
		Score:       cmp.Set.Score,
		ChangeCount: len(cmp.Set.Changes),
		ResultsURL:  "/results/" + sessionID + "/",
	})
}

func formImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New("missing " + field + " image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read " + field + " image")
	}
	return data, nil
}

// handleGetChanges returns the stored change set for a session.
func (s *Server) handleGetChanges(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	set, err := s.sessions.LoadChanges(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoComparison) {
			respondError(w, http.StatusNotFound, "no comparison for session")
			return
		}
		logging.Error("changes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load changes")
		return
	}
	respondJSON(w, http.StatusOK, set)
}

// ReconcileRequest selects the rack to reconcile a session against.
type ReconcileRequest struct {
	RackID string `json:"rack_id"`
}

// ReconcileResponse is returned after reconciliation.
type ReconcileResponse struct {
	SessionID     string                  `json:"session_id"`
	ReportID      string                  `json:"report_id"`
	Discrepancies []inventory.Discrepancy `json:"discrepancies"`
}

// handleReconcile reconciles a stored comparison against a rack's
// inventory and generates a report. Safe to call repeatedly for the
// same session.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RackID == "" {
		respondError(w, http.StatusBadRequest, "rack_id is required")
		return
	}

	if _, err := s.store.Rack(r.Context(), req.RackID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rack not found")
			return
		}
		logging.Error("reconcile: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load rack")
		return
	}

	set, err := s.sessions.LoadChanges(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoComparison) {
			respondError(w, http.StatusNotFound, "no comparison for session")
			return
		}
		logging.Error("reconcile: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load changes")
		return
	}

	discrepancies, err := s.engine.Reconcile(r.Context(), set, req.RackID)
	if err != nil {
		logging.Error("reconcile: %v", err)
		respondError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	rep := report.Build(set, req.RackID, discrepancies)
	if err := s.reports.Save(rep); err != nil {
		logging.Error("reconcile: report: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to persist report")
		return
	}

	respondJSON(w, http.StatusOK, ReconcileResponse{
		SessionID:     sessionID,
		ReportID:      rep.ReportID,
		Discrepancies: discrepancies,
	})
}

// handleGetReport fetches a stored report by session and report id.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	reportID := chi.URLParam(r, "reportID")

	rep, err := s.reports.Load(sessionID, reportID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		logging.Error("report: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// ResolveRequest records who resolved a discrepancy and why.
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Notes      string `json:"notes"`
}

func (s *Server) handleListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	discrepancies, err := s.store.DiscrepanciesBySession(r.Context(), sessionID)
	if err != nil {
		logging.Error("discrepancies: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load discrepancies")
		return
	}
	respondJSON(w, http.StatusOK, discrepancies)
}

func (s *Server) handleGetDiscrepancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "discrepancyID")

	d, err := s.store.Discrepancy(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "discrepancy not found")
			return
		}
		logging.Error("discrepancy: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load discrepancy")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleResolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "discrepancyID")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResolvedBy == "" {
		respondError(w, http.StatusBadRequest, "resolved_by is required")
		return
	}

	ok, err := s.store.MarkResolved(r.Context(), id, req.ResolvedBy, req.Notes)
	if err != nil {
		logging.Error("resolve: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to resolve discrepancy")
		return
	}
	if !ok {
		respondError(w, http.StatusConflict, "discrepancy missing or already resolved")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
