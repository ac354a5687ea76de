package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uxmeas/kollects-io/internal/types"
)

// requireAddress validates the wallet address path variable, writing a 400
// response and returning false when it is malformed
func requireAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := mux.Vars(r)["address"]
	if !types.IsValidFlowAddress(address) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidAddress,
			"Address must be 0x followed by 16 hex characters", map[string]interface{}{
				"address": address,
			})
		return "", false
	}
	return address, true
}

// handleListPurchases returns all purchase records for a wallet
func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}

	records, err := s.purchaseStore.GetAll(r.Context(), address)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"walletAddress": types.NormalizeAddress(address),
		"records":       records,
	})
}

// handleGetPurchase returns a single purchase record
func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]

	record, err := s.purchaseStore.Get(r.Context(), address, itemID)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No purchase record for this item", map[string]interface{}{
			"itemId": itemID,
		})
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handlePutPurchase merges a patch into the purchase record for an item
func (s *Server) handlePutPurchase(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]

	var patch types.PurchasePatch
	if err := parseJSONBody(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body: "+err.Error(), nil)
		return
	}

	if patch.IsEmpty() {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "At least one field must be set", nil)
		return
	}

	record, err := s.purchaseStore.Put(r.Context(), address, itemID, patch)
	if err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleDeletePurchase removes the purchase record for an item
func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	address, ok := requireAddress(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]

	if err := s.purchaseStore.Delete(r.Context(), address, itemID); err != nil {
		status, code, message := mapServiceError(err)
		respondError(w, status, code, message, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
