package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"gamepredict/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPredict(t *testing.T, args ...string) (int, map[string]any) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &payload), "stdout: %s", stdout.String())
	return code, payload
}

func TestRunWithoutFeatures(t *testing.T) {
	code, payload := runPredict(t)
	assert.Equal(t, 1, code)
	assert.Equal(t, map[string]any{"error": "No features provided"}, payload)
}

func TestRunRejectsBadFeatures(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")

	code, payload := runPredict(t, "-model_path", modelPath, `{"home_team_batting_avg":`)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, payload["error"])

	code, payload = runPredict(t, "-model_path", modelPath, `{"home_team_batting_avg":0.25}`)
	assert.Equal(t, 1, code)
	assert.Contains(t, payload["error"], "home_team_era")

	features, err := json.Marshal(ml.SampleFeatureRecord())
	require.NoError(t, err)
	code, payload = runPredict(t, "-model_path", modelPath, string(features)+" trailing garbage")
	assert.Equal(t, 1, code)
	assert.Contains(t, payload["error"], "extra data")
}

func TestRunUntrainedModel(t *testing.T) {
	features, err := json.Marshal(ml.SampleFeatureRecord())
	require.NoError(t, err)

	code, payload := runPredict(t, "-model_path", filepath.Join(t.TempDir(), "missing.json"), string(features))
	assert.Equal(t, 1, code)
	assert.Contains(t, payload["error"], "not trained")
}

func TestRunPredicts(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	ds, err := ml.GenerateSampleData(ml.SampleConfig{Rows: 200, Seed: 42, NoiseStdDev: 0.5})
	require.NoError(t, err)
	trainer := ml.NewGamePredictionModel(modelPath, ml.WithPipelineConfig(ml.PipelineConfig{NEstimators: 10, Seed: 42}))
	_, err = trainer.Train(ds)
	require.NoError(t, err)
	want, err := trainer.Predict(ml.SampleFeatureRecord())
	require.NoError(t, err)

	features, err := json.Marshal(ml.SampleFeatureRecord())
	require.NoError(t, err)
	code, payload := runPredict(t, "-model_path", modelPath, string(features))
	require.Equal(t, 0, code, payload)

	assert.Len(t, payload, 4)
	assert.Equal(t, want.PredictedHomeScore, payload["predicted_home_score"])
	assert.Equal(t, want.PredictedAwayScore, payload["predicted_away_score"])
	assert.Equal(t, want.PredictedTotal, payload["predicted_total"])
	assert.Equal(t, 0.7, payload["confidence_score"])
}
