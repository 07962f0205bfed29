package ml

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeatureRecord(t *testing.T) {
	record, err := ParseFeatureRecord([]byte(`{
		"home_team_batting_avg": 0.265,
		"home_team_era": 3.75,
		"home_team_runs_per_game": 4.8,
		"away_team_batting_avg": 0.248,
		"away_team_era": 4.25,
		"away_team_runs_per_game": 4
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0.265, record.HomeTeamBattingAvg)
	assert.Equal(t, 4.0, record.AwayTeamRunsPerGame)
	assert.Equal(t, []float64{0.265, 3.75, 4.8, 0.248, 4.25, 4}, FeatureVector(record))
}

func TestParseFeatureRecordRejects(t *testing.T) {
	cases := map[string]string{
		"malformed":   `{"home_team_era":`,
		"null":        `null`,
		"not object":  `[1,2,3]`,
		"missing":     `{"home_team_batting_avg":0.25,"home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_runs_per_game":4}`,
		"non-numeric": `{"home_team_batting_avg":"high","home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_era":4,"away_team_runs_per_game":4}`,
		"null field":  `{"home_team_batting_avg":null,"home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_era":4,"away_team_runs_per_game":4}`,
		"trailing":    `{"home_team_batting_avg":0.25,"home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_era":4,"away_team_runs_per_game":4} trailing garbage`,
		"two objects": `{"home_team_batting_avg":0.25,"home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_era":4,"away_team_runs_per_game":4}{}`,
		"unknown":     `{"home_team_batting_avg":0.25,"home_team_era":4,"home_team_runs_per_game":4,"away_team_batting_avg":0.25,"away_team_era":4,"away_team_runs_per_game":4,"park_factor":1.1}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFeatureRecord([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPredictionInputInvalid), "got %v", err)
		})
	}
}

func TestFeatureRecordUnmarshalIsStrict(t *testing.T) {
	var body struct {
		Features FeatureRecord `json:"features"`
	}
	err := json.Unmarshal([]byte(`{"features":{"home_team_era":4}}`), &body)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPredictionInputInvalid)
	assert.Contains(t, err.Error(), "missing feature home_team_batting_avg")
}

func TestRequiredColumns(t *testing.T) {
	columns := RequiredColumns()
	require.Len(t, columns, 8)
	assert.Equal(t, LabelHomeRuns, columns[6])
	assert.Equal(t, LabelAwayRuns, columns[7])
	assert.Len(t, FeatureNames(), FeatureCount)
}
