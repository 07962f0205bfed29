package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gamepredict/db"
	"gamepredict/ml"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type handlers struct {
	service *PredictionService
	events  *EventHub
	logger  *zap.Logger
}

func RegisterHandlers(router *mux.Router, service *PredictionService, events *EventHub, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{service: service, events: events, logger: logger}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/model", h.handleModelStatus).Methods(http.MethodGet)
	api.HandleFunc("/predictions", h.handlePredictions).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/training-log", h.handleTrainingLog).Methods(http.MethodGet)
	api.HandleFunc("/train", h.handleTrain).Methods(http.MethodPost)
	if events != nil {
		api.HandleFunc("/ws/events", events.HandleWebSocket).Methods(http.MethodGet)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// handlePredictions lists stored predictions on GET and scores a new one on POST.
func (h *handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.handlePredict(w, r)
		return
	}
	h.handleListPredictions(w, r)
}

type predictResponse struct {
	ID     int64 `json:"id,omitempty"`
	Cached bool  `json:"cached"`
	*ml.Prediction
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	var gameID *int64
	if raw := r.URL.Query().Get("game_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "game_id must be an integer")
			return
		}
		gameID = &id
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "No features provided")
		return
	}
	record, err := ml.ParseFeatureRecord(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, cached, err := h.service.Predict(record)
	if err != nil {
		switch {
		case ml.IsInputError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ml.ErrModelNotTrained):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "prediction failed")
		}
		return
	}

	response := predictResponse{Cached: cached, Prediction: prediction}
	if db.Initialized() {
		id, err := db.SavePrediction(gameID, record, prediction, h.service.ModelPath())
		if err != nil {
			h.logger.Warn("failed to record prediction", zap.Error(err))
		} else {
			response.ID = id
		}
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *handlers) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if !db.Initialized() {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}
	records, err := db.LoadPredictions(queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if !db.Initialized() {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}
	logs, err := db.LoadTrainingLog(queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
