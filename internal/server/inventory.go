package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"rackdiff/internal/inventory"
	"rackdiff/internal/logging"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListRacks(w http.ResponseWriter, r *http.Request) {
	racks, err := s.store.Racks(r.Context())
	if err != nil {
		logging.Error("racks: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load racks")
		return
	}
	respondJSON(w, http.StatusOK, racks)
}

func (s *Server) handleGetRack(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rackID")

	rack, err := s.store.Rack(r.Context(), rackID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "rack not found")
			return
		}
		logging.Error("rack: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load rack")
		return
	}
	respondJSON(w, http.StatusOK, rack)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rackID")

	assets, err := s.store.AssetsForRack(r.Context(), rackID)
	if err != nil {
		logging.Error("assets: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load assets")
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	rackID := chi.URLParam(r, "rackID")

	var asset inventory.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		respondError(w, http.StatusBadRequest, "invalid asset")
		return
	}
	asset.RackID = rackID
	if asset.AssetID == "" || asset.RUPosition < 1 || asset.RUSize < 1 {
		respondError(w, http.StatusBadRequest, "asset_id, ru_position and ru_size are required")
		return
	}
	if asset.Status == "" {
		asset.Status = inventory.StatusActive
	}

	if err := s.store.AddAsset(r.Context(), asset); err != nil {
		logging.Error("add asset: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to add asset")
		return
	}
	respondJSON(w, http.StatusCreated, asset)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	asset, err := s.store.AssetByID(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "asset not found")
			return
		}
		logging.Error("asset: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load asset")
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// AssetUpdateRequest carries the mutable asset fields; absent fields are
// left untouched.
type AssetUpdateRequest struct {
	RUPosition   *int    `json:"ru_position"`
	RUSize       *int    `json:"ru_size"`
	AssetType    *string `json:"asset_type"`
	Model        *string `json:"model"`
	SerialNumber *string `json:"serial_number"`
	Status       *string `json:"status"`
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	var req AssetUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid update")
		return
	}

	update := inventory.AssetUpdate{
		RUPosition:   req.RUPosition,
		RUSize:       req.RUSize,
		AssetType:    req.AssetType,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Status:       req.Status,
	}
	if update.IsZero() {
		respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := s.store.UpdateAsset(r.Context(), assetID, update); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "asset not found")
			return
		}
		logging.Error("update asset: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to update asset")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	if err := s.store.RemoveAsset(r.Context(), assetID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			respondError(w, http.StatusNotFound, "asset not found")
			return
		}
		logging.Error("remove asset: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to remove asset")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
