package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uxmeas/kollects-io/internal/types"
)

// portfolioRequest is the body of a POST snapshot request. Overrides supply
// request-scoped cost basis per item ID and are never persisted.
type portfolioRequest struct {
	Overrides map[string]types.PurchasePatch `json:"overrides"`
}

// handleGetPortfolio builds a snapshot for the wallet without overrides
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	snapshot, err := s.portfolioService.BuildSnapshot(r.Context(), address, nil)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// handlePostPortfolio builds a snapshot with request-scoped purchase overrides
func (s *Server) handlePostPortfolio(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	var req portfolioRequest
	if err := parseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body: "+err.Error(), nil)
		return
	}

	for itemID, patch := range req.Overrides {
		if err := patch.Validate(); err != nil {
			status, code, message := mapServiceError(err)
			respondError(w, status, code, message, map[string]interface{}{"itemId": itemID})
			return
		}
	}

	snapshot, err := s.portfolioService.BuildSnapshot(r.Context(), address, req.Overrides)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
