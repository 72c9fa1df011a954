package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"checkout-trainer/internal/app"
	"checkout-trainer/internal/darts"
	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/logging"
)

// APIHandler serves the read-only REST endpoints: checkout advice,
// validation, leaderboards and stats.
type APIHandler struct {
	trainer  *app.Trainer
	log      *logrus.Entry
	validate *validator.Validate
}

func NewAPIHandler(trainer *app.Trainer, log *logrus.Entry) *APIHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &APIHandler{trainer: trainer, log: log, validate: validator.New()}
}

type validateRequest struct {
	Target int      `json:"target" validate:"gte=2,lte=170"`
	Throws []string `json:"throws" validate:"required,min=1,max=3"`
}

type validateResponse struct {
	darts.Result
	Target int      `json:"target"`
	Throws []string `json:"throws"`
	Total  int      `json:"total"`
}

// Checkouts handles GET /api/checkouts?score=N[&darts=M].
func (h *APIHandler) Checkouts(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "score must be a number")
		return
	}
	maxDarts := 0
	if raw := r.URL.Query().Get("darts"); raw != "" {
		if maxDarts, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "darts must be a number")
			return
		}
	}
	writeJSON(w, http.StatusOK, h.trainer.Checkouts(score, maxDarts))
}

// Validate handles POST /api/validate.
func (h *APIHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	throws, err := darts.ParseNotations(req.Throws)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Result: darts.Validate(req.Target, throws),
		Target: req.Target,
		Throws: darts.Notations(throws),
		Total:  darts.Total(throws),
	})
}

// Leaderboard handles GET /api/leaderboard?period=&userId=.
func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	board, err := h.trainer.Leaderboard(r.Context(), q.Get("period"), q.Get("userId"))
	if errors.Is(err, domain.ErrUnknownPeriod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).Error("load leaderboard")
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// RapidLeaderboard handles GET /api/rapid/leaderboard?limit=N.
func (h *APIHandler) RapidLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	scores, err := h.trainer.RapidLeaderboard(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("load rapid leaderboard")
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	if scores == nil {
		scores = []domain.RapidScore{}
	}
	writeJSON(w, http.StatusOK, scores)
}

// Stats handles GET /api/stats?userId=.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}
	stats, err := h.trainer.Stats(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("load stats")
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
