package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"go.uber.org/zap"
)

// DefaultConfidence is returned with every prediction. It is a fixed placeholder,
// not derived from the model.
const DefaultConfidence = 0.7

const (
	defaultTestRatio = 0.2
	defaultSplitSeed = 42
)

// Prediction is the result of scoring one FeatureRecord.
type Prediction struct {
	PredictedHomeScore float64 `json:"predicted_home_score"`
	PredictedAwayScore float64 `json:"predicted_away_score"`
	PredictedTotal     float64 `json:"predicted_total"`
	ConfidenceScore    float64 `json:"confidence_score"`
}

// TrainResult carries the held-out R² of each side.
type TrainResult struct {
	HomeScore float64 `json:"home_score"`
	AwayScore float64 `json:"away_score"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// GamePredictionModel owns a home/away ModelPair and the store it is persisted in.
// It holds no locks: callers sharing one instance must serialize Train and
// Reload against Predict.
type GamePredictionModel struct {
	store     *ModelStore
	pair      *ModelPair
	config    PipelineConfig
	testRatio float64
	splitSeed int64
	logger    *zap.Logger
}

type Option func(*GamePredictionModel)

func WithLogger(logger *zap.Logger) Option {
	return func(m *GamePredictionModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithPipelineConfig(config PipelineConfig) Option {
	return func(m *GamePredictionModel) {
		m.config = config.withDefaults()
	}
}

// WithTestRatio sets the held-out share used by Train. Values outside (0, 1)
// fall back to 0.2.
func WithTestRatio(ratio float64) Option {
	return func(m *GamePredictionModel) {
		m.testRatio = ratio
	}
}

func WithSplitSeed(seed int64) Option {
	return func(m *GamePredictionModel) {
		m.splitSeed = seed
	}
}

// NewGamePredictionModel loads the pair stored at modelPath, or starts from fresh
// untrained pipelines when nothing usable is stored. It never fails.
func NewGamePredictionModel(modelPath string, opts ...Option) *GamePredictionModel {
	m := &GamePredictionModel{
		store:     NewModelStore(modelPath),
		config:    DefaultPipelineConfig(),
		testRatio: defaultTestRatio,
		splitSeed: defaultSplitSeed,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.testRatio <= 0 || m.testRatio >= 1 {
		m.testRatio = defaultTestRatio
	}
	m.loadOrCreate()
	return m
}

func (m *GamePredictionModel) loadOrCreate() {
	path := m.store.Path()
	if !m.store.Exists() {
		m.logger.Info("creating new model", zap.String("path", path))
		m.pair = NewModelPair(m.config)
		return
	}
	m.logger.Info("loading existing model", zap.String("path", path))
	pair, err := m.store.Load()
	if err != nil {
		m.logger.Error("error loading model", zap.String("path", path), zap.Error(err))
		m.pair = NewModelPair(m.config)
		return
	}
	m.pair = pair
}

// Reload re-reads the store. Unlike construction, a failed load keeps the
// current pair and is reported to the caller.
func (m *GamePredictionModel) Reload() error {
	pair, err := m.store.Load()
	if err != nil {
		m.logger.Warn("reload failed, keeping current model", zap.String("path", m.store.Path()), zap.Error(err))
		return err
	}
	m.pair = pair
	m.logger.Info("model reloaded", zap.String("path", m.store.Path()))
	return nil
}

func (m *GamePredictionModel) Trained() bool {
	return m.pair.Trained()
}

func (m *GamePredictionModel) ModelPath() string {
	return m.store.Path()
}

// Train fits both pipelines on the same 80/20 split, scores them on the held-out
// rows and saves the new pair. On any error the in-memory pair and the store are
// left as they were.
func (m *GamePredictionModel) Train(ds *Dataset) (*TrainResult, error) {
	m.logger.Info("training game prediction model", zap.Int("rows", ds.Len()))

	if missing := ds.MissingColumns(RequiredColumns()); len(missing) > 0 {
		for _, column := range missing {
			m.logger.Error("missing required column", zap.String("column", column))
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingTrainingColumn, strings.Join(missing, ", "))
	}

	trainIdx, testIdx, err := splitIndices(ds.Len(), m.testRatio, m.splitSeed)
	if err != nil {
		m.logger.Error("cannot split dataset", zap.Error(err))
		return nil, err
	}

	names := FeatureNames()
	trainX := ds.matrix(names, trainIdx)
	testX := ds.matrix(names, testIdx)

	pair := NewModelPair(m.config)
	scores := make(map[Side]float64, 2)
	labels := map[Side]string{SideHome: LabelHomeRuns, SideAway: LabelAwayRuns}
	for _, side := range []Side{SideHome, SideAway} {
		pipeline := pair.Pipeline(side)
		if err := pipeline.Fit(trainX, ds.values(labels[side], trainIdx)); err != nil {
			return nil, fmt.Errorf("fit %s pipeline: %w", side, err)
		}
		score, err := pipeline.Score(testX, ds.values(labels[side], testIdx))
		if err != nil {
			return nil, fmt.Errorf("score %s pipeline: %w", side, err)
		}
		scores[side] = score
		m.logger.Info("model R² score", zap.String("side", string(side)), zap.Float64("r2", score))
	}

	if err := m.store.Save(pair); err != nil {
		m.logger.Error("error saving model", zap.String("path", m.store.Path()), zap.Error(err))
		return nil, fmt.Errorf("save model: %w", err)
	}
	m.pair = pair

	return &TrainResult{
		HomeScore: scores[SideHome],
		AwayScore: scores[SideAway],
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
	}, nil
}

// Predict scores one matchup. Negative estimates are clamped to zero and every
// figure is rounded to one decimal.
func (m *GamePredictionModel) Predict(record FeatureRecord) (*Prediction, error) {
	if m.pair == nil || m.pair.Home == nil || m.pair.Away == nil {
		m.logger.Error("model not loaded")
		return nil, fmt.Errorf("%w: model not loaded", ErrPredictionInputInvalid)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if !m.pair.Trained() {
		return nil, ErrModelNotTrained
	}

	vector := FeatureVector(record)
	home, err := m.pair.Home.Predict(vector)
	if err != nil {
		return nil, fmt.Errorf("predict home: %w", err)
	}
	away, err := m.pair.Away.Predict(vector)
	if err != nil {
		return nil, fmt.Errorf("predict away: %w", err)
	}
	home = math.Max(0, home)
	away = math.Max(0, away)

	return &Prediction{
		PredictedHomeScore: roundTenth(home),
		PredictedAwayScore: roundTenth(away),
		PredictedTotal:     roundTenth(home + away),
		ConfidenceScore:    DefaultConfidence,
	}, nil
}

// splitIndices shuffles 0..n-1 with a fixed seed; the first ceil(n*ratio)
// indices are held out for evaluation.
func splitIndices(n int, testRatio float64, seed int64) (train, test []int, err error) {
	nTest := int(math.Ceil(float64(n) * testRatio))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split with test ratio %.2f", ErrInsufficientData, n, testRatio)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func roundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}

// IsInputError reports whether err came from a bad feature record or dataset
// rather than from the model or the filesystem.
func IsInputError(err error) bool {
	return errors.Is(err, ErrPredictionInputInvalid) ||
		errors.Is(err, ErrMissingTrainingColumn) ||
		errors.Is(err, ErrInsufficientData)
}
