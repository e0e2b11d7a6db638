package api

import (
	"log"
	"net/http"

	"marketSimServer/crypto"
	"marketSimServer/db"
)

// VerifyResponse reports whether a revealed seed matches a published hash
type VerifyResponse struct {
	Success  bool   `json:"success"`
	RunID    string `json:"runId"`
	SeedHash string `json:"seedHash"`
	Valid    bool   `json:"valid"`
}

// HandleVerify handles GET /api/verify?seed=...&runId=...
// Without runId the seed is checked against the running game's hash.
func (h *Handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	seed := r.URL.Query().Get("seed")
	if seed == "" {
		sendError(w, http.StatusBadRequest, "Seed is required")
		return
	}

	ctx := r.Context()
	runID := r.URL.Query().Get("runId")
	var hash string

	if runID == "" {
		snap, err := h.market.Snapshot(ctx)
		if err != nil {
			log.Printf("❌ Failed to snapshot market: %v", err)
			sendError(w, http.StatusServiceUnavailable, "Market unavailable")
			return
		}
		runID, hash = snap.RunID, snap.SeedHash
	} else {
		result, err := db.GetGameResult(ctx, runID)
		if err != nil {
			log.Printf("❌ Failed to get game result %s: %v", runID, err)
			sendError(w, http.StatusInternalServerError, "Failed to retrieve result")
			return
		}
		if result == nil {
			sendError(w, http.StatusNotFound, "Game not found")
			return
		}
		hash = result.SeedHash
	}

	sendJSON(w, http.StatusOK, VerifyResponse{
		Success:  true,
		RunID:    runID,
		SeedHash: hash,
		Valid:    crypto.VerifySeed(seed, hash),
	})
}
