package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"household_finance/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler exposes the runner and materializer over HTTP for internal callers.
type Handler struct {
	runner       app.NotificationRunner
	materializer app.OccurrenceMaterializer
	logger       *logrus.Entry
}

func NewHandler(runner app.NotificationRunner, materializer app.OccurrenceMaterializer, logger *logrus.Entry) *Handler {
	return &Handler{runner: runner, materializer: materializer, logger: logger}
}

type materializeRequest struct {
	HorizonMonths int    `json:"horizon_months"`
	Description   string `json:"description"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) handleRunTick(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunTick(r.Context())
	if errors.Is(err, app.ErrTickInProgress) {
		respondWithJSON(w, http.StatusConflict, statusResponse{Status: "busy", Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Notification tick requested over HTTP failed")
		respondWithJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleMaterializeSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, err := uuid.Parse(chi.URLParam(r, "seriesID"))
	if err != nil {
		http.Error(w, "Invalid series ID", http.StatusBadRequest)
		return
	}

	var req materializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.HorizonMonths < 0 || req.HorizonMonths > app.MaxHorizonMonths {
		http.Error(w, fmt.Sprintf("horizon_months must be between 0 and %d", app.MaxHorizonMonths), http.StatusBadRequest)
		return
	}

	opts := app.MaterializeOptions{HorizonMonths: req.HorizonMonths, Description: req.Description}
	if err := h.materializer.MaterializeOccurrences(r.Context(), seriesID, opts); err != nil {
		logCtx := h.logger.WithError(err).WithField("series_id", seriesID)
		if errors.Is(err, app.ErrInvalidRecurrenceInterval) {
			logCtx.Warn("Series has an invalid recurrence interval")
			respondWithJSON(w, http.StatusUnprocessableEntity, statusResponse{Status: "error", Error: err.Error()})
			return
		}
		logCtx.Error("Materialization requested over HTTP failed")
		respondWithJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Handler) handleMaterializeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.materializer.MaterializeAllActive(r.Context()); err != nil {
		h.logger.WithError(err).Error("Materialization sweep requested over HTTP failed")
		respondWithJSON(w, http.StatusInternalServerError, statusResponse{Status: "error", Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
