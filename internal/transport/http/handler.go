// Package http is the thin collaborator surface in front of the engine.
// The chat bot (or any other transport) speaks JSON to these endpoints and
// renders the structured outcomes as user-facing text.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"ginkana-service/internal/app"
	"ginkana-service/internal/domain"
)

type Handler struct {
	service *app.GameService
	log     zerolog.Logger
}

func NewHandler(service *app.GameService, logger zerolog.Logger) *Handler {
	return &Handler{service: service, log: logger}
}

// Register wires the API routes into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/teams", h.registerTeam)
	mux.HandleFunc("GET /api/teams", h.teams)
	mux.HandleFunc("POST /api/answers", h.submitAnswer)
	mux.HandleFunc("GET /api/challenges", h.pendingChallenges)
	mux.HandleFunc("GET /api/ranking", h.ranking)
	mux.HandleFunc("/ws/ranking", h.serveRankingWS)
}

type registerRequest struct {
	Team     string   `json:"team"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Players  []string `json:"players"`
}

type answerRequest struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	ChallengeID int    `json:"challengeId"`
	Answer      string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// RecordedStatus is set on duplicate submissions so the caller can
	// tell the team what is already on the books.
	RecordedStatus domain.Status `json:"recordedStatus,omitempty"`
}

func (h *Handler) registerTeam(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	identity := domain.NormalizeIdentity(req.Username, req.Name)
	if err := h.service.RegisterTeam(r.Context(), req.Team, identity, req.Players); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"team": req.Team, "submitter": identity})
}

func (h *Handler) teams(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.TeamSummaries(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	identity := domain.NormalizeIdentity(req.Username, req.Name)
	outcome, err := h.service.SubmitAnswer(r.Context(), identity, req.ChallengeID, req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) pendingChallenges(w http.ResponseWriter, r *http.Request) {
	identity := domain.NormalizeIdentity(r.URL.Query().Get("username"), r.URL.Query().Get("name"))
	list, err := h.service.PendingChallenges(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ranking(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var dup *domain.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:          dup.Error(),
			Code:           "duplicate_submission",
			RecordedStatus: dup.Status,
		})
	case errors.Is(err, domain.ErrNotRegistered):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Code: "not_registered"})
	case errors.Is(err, domain.ErrUnknownChallenge):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "unknown_challenge"})
	case errors.Is(err, domain.ErrSubmitterTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "submitter_taken"})
	case errors.Is(err, domain.ErrTeamExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "team_exists"})
	case errors.Is(err, domain.ErrNoPlayers):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "no_players"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		// Transient: the caller should ask the user to retry.
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: "store_unavailable"})
	default:
		h.log.Error().Err(err).Msg("unhandled service error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
