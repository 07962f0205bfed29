package http

import (
	"fmt"
	"sync"

	"gamepredict/ml"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Predictor is the part of ml.GamePredictionModel the server depends on.
type Predictor interface {
	Predict(record ml.FeatureRecord) (*ml.Prediction, error)
	Train(ds *ml.Dataset) (*ml.TrainResult, error)
	Reload() error
	Trained() bool
	ModelPath() string
}

// PredictionService shares one model between request goroutines. Predictions
// run under a read lock; Train and Reload take the write lock and purge the
// cache, since cached results belong to the previous model.
type PredictionService struct {
	mu     sync.RWMutex
	model  Predictor
	cache  *lru.Cache[ml.FeatureRecord, ml.Prediction]
	events *EventHub
	logger *zap.Logger
}

type ModelStatus struct {
	Trained           bool   `json:"trained"`
	ModelPath         string `json:"model_path"`
	CachedPredictions int    `json:"cached_predictions"`
}

func NewPredictionService(model Predictor, cacheSize int, events *EventHub, logger *zap.Logger) (*PredictionService, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[ml.FeatureRecord, ml.Prediction](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionService{
		model:  model,
		cache:  cache,
		events: events,
		logger: logger,
	}, nil
}

// Predict returns the prediction for record and whether it came from the cache.
func (s *PredictionService) Predict(record ml.FeatureRecord) (*ml.Prediction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cached, ok := s.cache.Get(record); ok {
		return &cached, true, nil
	}
	prediction, err := s.model.Predict(record)
	if err != nil {
		return nil, false, err
	}
	s.cache.Add(record, *prediction)
	s.events.Publish(EventPrediction, map[string]any{
		"features":   record,
		"prediction": prediction,
	})
	return prediction, false, nil
}

func (s *PredictionService) Train(ds *ml.Dataset) (*ml.TrainResult, error) {
	s.mu.Lock()
	result, err := s.model.Train(ds)
	if err == nil {
		s.cache.Purge()
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s.events.Publish(EventModelTrained, result)
	return result, nil
}

func (s *PredictionService) Reload() error {
	s.mu.Lock()
	err := s.model.Reload()
	if err == nil {
		s.cache.Purge()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("model reload failed", zap.Error(err))
		return err
	}
	s.events.Publish(EventModelReloaded, map[string]any{"model_path": s.model.ModelPath()})
	return nil
}

func (s *PredictionService) Status() ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ModelStatus{
		Trained:           s.model.Trained(),
		ModelPath:         s.model.ModelPath(),
		CachedPredictions: s.cache.Len(),
	}
}

func (s *PredictionService) ModelPath() string {
	return s.model.ModelPath()
}
