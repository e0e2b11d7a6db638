package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"marketSimServer/db"
	"marketSimServer/engine"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// ResultsResponse lists recent finished games
type ResultsResponse struct {
	Success bool                   `json:"success"`
	Results []*db.GameResultRecord `json:"results"`
}

// ResultDetailResponse is one finished game with its trades
type ResultDetailResponse struct {
	Success bool                 `json:"success"`
	Result  *db.GameResultRecord `json:"result"`
	Trades  []engine.TradeRecord `json:"trades"`
}

// HandleGetResults handles GET /api/results
// Query params: limit (optional, default 20, max 100)
func HandleGetResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultResultsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			sendError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxResultsLimit)
	}

	results, err := db.GetRecentResults(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to get game results: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}
	sendJSON(w, http.StatusOK, ResultsResponse{Success: true, Results: results})
}

// HandleGetResultDetail handles GET /api/results/:runId
func HandleGetResultDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/results/"), "/")
	if runID == "" {
		sendError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	ctx := r.Context()
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

	trades, err := db.GetTrades(ctx, runID)
	if err != nil {
		log.Printf("❌ Failed to get trades for %s: %v", runID, err)
		sendError(w, http.StatusInternalServerError, "Failed to retrieve trades")
		return
	}
	if trades == nil {
		trades = []engine.TradeRecord{}
	}

	sendJSON(w, http.StatusOK, ResultDetailResponse{Success: true, Result: result, Trades: trades})
}
