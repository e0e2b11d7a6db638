package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"marketSimServer/db"
	"marketSimServer/engine"
	"marketSimServer/state"
)

// Market is the engine surface the HTTP API reads from and drives.
type Market interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	Admin(ctx context.Context, action, symbol string) (state.ClockState, error)
}

// Handlers serves the REST endpoints for one running market.
type Handlers struct {
	market Market
}

func NewHandlers(market Market) *Handlers {
	return &Handlers{market: market}
}

// Register mounts every endpoint on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", corsMiddleware(h.HandleHealthCheck))
	mux.HandleFunc("/api/market", corsMiddleware(h.HandleGetMarket))
	mux.HandleFunc("/api/leaderboard", corsMiddleware(h.HandleGetLeaderboard))
	mux.HandleFunc("/api/admin", corsMiddleware(h.HandleAdmin))
	mux.HandleFunc("/api/results", corsMiddleware(HandleGetResults))
	mux.HandleFunc("/api/results/", corsMiddleware(HandleGetResultDetail)) // Trailing slash for :runId
	mux.HandleFunc("/api/verify", corsMiddleware(h.HandleVerify))
}

/* =========================
   RESPONSE TYPES
========================= */

// MarketResponse is the full market snapshot
type MarketResponse struct {
	Success bool            `json:"success"`
	Market  engine.Snapshot `json:"market"`
}

// LeaderboardEntryResponse represents a single leaderboard entry
type LeaderboardEntryResponse struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Success      bool                       `json:"success"`
	Source       string                     `json:"source"`
	Leaderboard  []LeaderboardEntryResponse `json:"leaderboard"`
	UserPosition *LeaderboardEntryResponse  `json:"userPosition,omitempty"`
}

// AdminRequest is the body of POST /api/admin
type AdminRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// AdminResponse reports the clock after an admin action
type AdminResponse struct {
	Success bool             `json:"success"`
	Clock   state.ClockState `json:"clock"`
}

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()

	redisHealth := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	engineHealth := "ok"
	var clock state.ClockState
	if snap, err := h.market.Snapshot(ctx); err != nil {
		engineHealth = "error: " + err.Error()
	} else {
		clock = snap.Clock
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  engineHealth == "ok",
		"engine":   engineHealth,
		"clock":    clock,
		"redis":    redisHealth,
		"postgres": postgresHealth,
		"message":  "Health check completed",
	})
}

// HandleGetMarket handles GET /api/market
func (h *Handlers) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, err := h.market.Snapshot(r.Context())
	if err != nil {
		log.Printf("❌ Failed to snapshot market: %v", err)
		sendError(w, http.StatusServiceUnavailable, "Market unavailable")
		return
	}
	sendJSON(w, http.StatusOK, MarketResponse{Success: true, Market: snap})
}

// HandleGetLeaderboard handles GET /api/leaderboard
// Query params: name (optional) - get that participant's position,
// source=redis (optional) - read the mirrored board instead of the engine
func (h *Handlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()
	source := "engine"
	var board []state.LeaderboardEntry

	if r.URL.Query().Get("source") == "redis" {
		source = "redis"
		entries, err := db.GetLeaderboard(ctx, 0)
		if err != nil {
			log.Printf("❌ Failed to get leaderboard: %v", err)
			sendError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
			return
		}
		board = entries
	} else {
		snap, err := h.market.Snapshot(ctx)
		if err != nil {
			log.Printf("❌ Failed to snapshot market: %v", err)
			sendError(w, http.StatusServiceUnavailable, "Market unavailable")
			return
		}
		board = snap.Leaderboard
	}

	response := LeaderboardResponse{
		Success:     true,
		Source:      source,
		Leaderboard: make([]LeaderboardEntryResponse, 0, len(board)),
	}
	for i, e := range board {
		response.Leaderboard = append(response.Leaderboard, LeaderboardEntryResponse{
			Rank:  i + 1,
			Name:  e.Name,
			Value: e.Value,
		})
	}

	if name := r.URL.Query().Get("name"); name != "" {
		for i := range response.Leaderboard {
			if response.Leaderboard[i].Name == name {
				entry := response.Leaderboard[i]
				response.UserPosition = &entry
				break
			}
		}
	}

	sendJSON(w, http.StatusOK, response)
}

// HandleAdmin handles POST /api/admin
func (h *Handlers) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" {
		sendError(w, http.StatusBadRequest, "Action is required")
		return
	}

	clock, err := h.market.Admin(r.Context(), req.Action, strings.ToUpper(strings.TrimSpace(req.Symbol)))
	switch {
	case err == nil:
		log.Printf("📋 Admin action %q applied (status: %s)", req.Action, clock.Status)
		sendJSON(w, http.StatusOK, AdminResponse{Success: true, Clock: clock})
	case errors.Is(err, engine.ErrUnknownAction), errors.Is(err, state.ErrUnknownInstrument):
		sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrGameEnded):
		sendError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("❌ Admin action %q failed: %v", req.Action, err)
		sendError(w, http.StatusServiceUnavailable, "Market unavailable")
	}
}
