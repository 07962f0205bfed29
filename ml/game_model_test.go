package ml

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fastPipeline = PipelineConfig{NEstimators: 10, Seed: 42}

func sampleDataset(t *testing.T, rows int, noise float64) *Dataset {
	t.Helper()
	ds, err := GenerateSampleData(SampleConfig{Rows: rows, Seed: 42, NoiseStdDev: noise})
	require.NoError(t, err)
	return ds
}

func TestGamePredictionModelEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "game_prediction_model.json")
	model := NewGamePredictionModel(path)
	assert.False(t, model.Trained())

	result, err := model.Train(sampleDataset(t, 1000, 0.25))
	require.NoError(t, err)
	assert.Equal(t, 800, result.TrainRows)
	assert.Equal(t, 200, result.TestRows)
	assert.Greater(t, result.HomeScore, 0.5)
	assert.Greater(t, result.AwayScore, 0.5)
	assert.True(t, model.Trained())

	prediction, err := model.Predict(SampleFeatureRecord())
	require.NoError(t, err)
	// noiseless targets for the sample record are 7.015 and 6.445
	assert.InDelta(t, 7.015, prediction.PredictedHomeScore, 1.5)
	assert.InDelta(t, 6.445, prediction.PredictedAwayScore, 1.5)
	assert.GreaterOrEqual(t, prediction.PredictedTotal, 4.0)
	assert.InDelta(t, 13.46, prediction.PredictedTotal, 2.5)
	assert.Equal(t, 0.7, prediction.ConfidenceScore)
}

func TestGamePredictionModelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	model := NewGamePredictionModel(path, WithPipelineConfig(fastPipeline))
	_, err := model.Train(sampleDataset(t, 300, 0.5))
	require.NoError(t, err)

	records := []FeatureRecord{
		SampleFeatureRecord(),
		{HomeTeamBattingAvg: 0.221, HomeTeamERA: 4.9, HomeTeamRunsPerGame: 3.1, AwayTeamBattingAvg: 0.279, AwayTeamERA: 3.05, AwayTeamRunsPerGame: 5.9},
		{HomeTeamBattingAvg: 0.3, HomeTeamERA: 2.0, HomeTeamRunsPerGame: 7, AwayTeamBattingAvg: 0.2, AwayTeamERA: 6, AwayTeamRunsPerGame: 2},
	}

	reloaded := NewGamePredictionModel(path)
	require.True(t, reloaded.Trained())
	for _, record := range records {
		want, err := model.Predict(record)
		require.NoError(t, err)
		got, err := reloaded.Predict(record)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGamePredictionModelDeterministic(t *testing.T) {
	ds := sampleDataset(t, 300, 0.5)
	first := NewGamePredictionModel(filepath.Join(t.TempDir(), "a.json"), WithPipelineConfig(fastPipeline))
	second := NewGamePredictionModel(filepath.Join(t.TempDir(), "b.json"), WithPipelineConfig(fastPipeline))

	r1, err := first.Train(ds)
	require.NoError(t, err)
	r2, err := second.Train(ds)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	p1, err := first.Predict(SampleFeatureRecord())
	require.NoError(t, err)
	p2, err := second.Predict(SampleFeatureRecord())
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestGamePredictionModelClampsNegative(t *testing.T) {
	games, err := GenerateSampleGames(SampleConfig{Rows: 100, Seed: 5})
	require.NoError(t, err)
	for i := range games {
		games[i].HomeTeamRuns = -3 - float64(i%4)
	}
	model := NewGamePredictionModel(filepath.Join(t.TempDir(), "model.json"), WithPipelineConfig(fastPipeline))
	_, err = model.Train(DatasetFromGames(games))
	require.NoError(t, err)

	for _, g := range games[:20] {
		prediction, err := model.Predict(g.Features)
		require.NoError(t, err)
		assert.Equal(t, 0.0, prediction.PredictedHomeScore)
		assert.GreaterOrEqual(t, prediction.PredictedAwayScore, 0.0)
		assert.Equal(t, prediction.PredictedAwayScore, prediction.PredictedTotal)
		assert.Equal(t, DefaultConfidence, prediction.ConfidenceScore)
	}
}

func TestGamePredictionModelMissingColumn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	path := filepath.Join(t.TempDir(), "model.json")
	model := NewGamePredictionModel(path, WithPipelineConfig(fastPipeline), WithLogger(zap.New(core)))

	ds := sampleDataset(t, 200, 0.5)
	_, err := model.Train(ds)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	prediction, err := model.Predict(SampleFeatureRecord())
	require.NoError(t, err)

	result, err := model.Train(ds.DropColumn(FeatureAwayERA))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrMissingTrainingColumn)
	assert.True(t, IsInputError(err))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	again, err := model.Predict(SampleFeatureRecord())
	require.NoError(t, err)
	assert.Equal(t, prediction, again)

	missing := logs.FilterMessage("missing required column").All()
	require.Len(t, missing, 1)
	assert.Equal(t, FeatureAwayERA, missing[0].ContextMap()["column"])
}

func TestGamePredictionModelInsufficientData(t *testing.T) {
	model := NewGamePredictionModel(filepath.Join(t.TempDir(), "model.json"), WithPipelineConfig(fastPipeline))
	_, err := model.Train(sampleDataset(t, 1, 0))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, model.Trained())
}

func TestGamePredictionModelUntrained(t *testing.T) {
	model := NewGamePredictionModel(filepath.Join(t.TempDir(), "model.json"))
	_, err := model.Predict(SampleFeatureRecord())
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestGamePredictionModelCorruptStoreFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not a model"), 0o600))

	core, logs := observer.New(zapcore.InfoLevel)
	model := NewGamePredictionModel(path, WithLogger(zap.New(core)))
	assert.False(t, model.Trained())
	assert.Equal(t, 1, logs.FilterMessage("error loading model").Len())

	_, err := model.Predict(SampleFeatureRecord())
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestGamePredictionModelRejectsNonFinite(t *testing.T) {
	model := NewGamePredictionModel(filepath.Join(t.TempDir(), "model.json"))
	record := SampleFeatureRecord()
	record.HomeTeamERA = math.Inf(1)
	_, err := model.Predict(record)
	assert.ErrorIs(t, err, ErrPredictionInputInvalid)
}

func TestGamePredictionModelReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	serving := NewGamePredictionModel(path, WithPipelineConfig(fastPipeline))
	assert.Error(t, serving.Reload())
	assert.False(t, serving.Trained())

	trainer := NewGamePredictionModel(path, WithPipelineConfig(fastPipeline))
	_, err := trainer.Train(sampleDataset(t, 200, 0.5))
	require.NoError(t, err)

	require.NoError(t, serving.Reload())
	assert.True(t, serving.Trained())
	want, _ := trainer.Predict(SampleFeatureRecord())
	got, _ := serving.Predict(SampleFeatureRecord())
	assert.Equal(t, want, got)
}

func TestSplitIndices(t *testing.T) {
	train, test, err := splitIndices(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	seen := make(map[int]bool)
	for _, idx := range append(append([]int(nil), train...), test...) {
		assert.False(t, seen[idx])
		seen[idx] = true
	}
	assert.Len(t, seen, 10)

	train2, test2, _ := splitIndices(10, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}
