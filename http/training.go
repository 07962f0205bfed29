package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gamepredict/db"
	"gamepredict/ml"

	"go.uber.org/zap"
)

const (
	TrainingSourceGames  = "games"
	TrainingSourceSample = "sample"
)

// TrainingRequest selects the rows a retrain uses. Source "games" reads the
// games table; "sample" generates synthetic rows. An empty source prefers
// stored games and falls back to samples when none exist.
type TrainingRequest struct {
	Source string  `json:"source"`
	Rows   int     `json:"rows"`
	Seed   int64   `json:"seed"`
	Noise  float64 `json:"noise"`
}

// MaxTrainingRows bounds the rows a single retrain may request.
const MaxTrainingRows = 100000

var errNoStoredGames = errors.New("no stored games to train on")

func trainingDataset(req TrainingRequest) (*ml.Dataset, string, error) {
	if req.Rows < 0 || req.Rows > MaxTrainingRows {
		return nil, "", fmt.Errorf("rows must be between 0 and %d", MaxTrainingRows)
	}
	source := req.Source
	if source == "" || source == TrainingSourceGames {
		if db.Initialized() {
			games, err := db.LoadGames(req.Rows)
			if err != nil {
				return nil, "", err
			}
			if len(games) > 0 {
				return ml.DatasetFromGames(games), TrainingSourceGames, nil
			}
		}
		if source == TrainingSourceGames {
			return nil, "", errNoStoredGames
		}
		source = TrainingSourceSample
	}
	if source != TrainingSourceSample {
		return nil, "", fmt.Errorf("unknown training source %q", req.Source)
	}

	config := ml.DefaultSampleConfig()
	if req.Rows > 0 {
		config.Rows = req.Rows
	}
	if req.Seed != 0 {
		config.Seed = req.Seed
	}
	if req.Noise > 0 {
		config.NoiseStdDev = req.Noise
	}
	ds, err := ml.GenerateSampleData(config)
	return ds, TrainingSourceSample, err
}

func (h *handlers) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid training request: "+err.Error())
			return
		}
	}

	ds, source, err := trainingDataset(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Train(ds)
	if err != nil {
		if ml.IsInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("training failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}
	h.logger.Info("model retrained",
		zap.String("source", source),
		zap.Int("train_rows", result.TrainRows),
		zap.Float64("home_r2", result.HomeScore),
		zap.Float64("away_r2", result.AwayScore),
	)

	if db.Initialized() {
		if err := db.SaveTrainingLog(h.service.ModelPath(), result); err != nil {
			h.logger.Warn("failed to record training run", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"result": result,
	})
}
