package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// respondHandler processes one conversation turn.
func (s *Server) respondHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	var req models.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.respondHandler: malformed request body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	resp, err := s.orchestrator.Respond(r.Context(), req)
	if err != nil {
		// The request was validated above, so any failure here is internal.
		// Details are logged; the caller gets a generic message.
		slog.Error("Server.respondHandler: turn failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process turn"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Store string `json:"store"`
	Cache string `json:"cache"`
}

// healthHandler reports store and cache reachability.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := healthStatus{Store: "ok", Cache: "ok"}
	healthy := true
	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("Server.healthHandler: store unreachable", "error", err)
		status.Store = "unreachable"
		healthy = false
	}
	if err := s.cache.Ping(ctx); err != nil {
		slog.Warn("Server.healthHandler: cache unreachable", "error", err)
		status.Cache = "unreachable"
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, code, models.Success(status))
}
