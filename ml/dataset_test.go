package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"home_team_batting_avg,home_team_era,home_team_runs_per_game,away_team_batting_avg,away_team_era,away_team_runs_per_game,home_team_runs,away_team_runs",
		"0.25,4.0,4.5,0.24,3.5,4.1,5,3",
		"0.26, 3.9, 4.7, 0.23, 4.2, 3.9, 6, 2",
	}, "\n")

	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Empty(t, ds.MissingColumns(RequiredColumns()))

	era, ok := ds.Column(FeatureHomeERA)
	require.True(t, ok)
	assert.Equal(t, []float64{4.0, 3.9}, era)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,x\n"))
	assert.ErrorContains(t, err, "line 2 column b")

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	assert.ErrorContains(t, err, "duplicate column")
}

func TestDatasetDropColumn(t *testing.T) {
	games, err := GenerateSampleGames(SampleConfig{Rows: 5, Seed: 1})
	require.NoError(t, err)
	ds := DatasetFromGames(games)

	dropped := ds.DropColumn(FeatureAwayERA)
	assert.Equal(t, []string{FeatureAwayERA}, dropped.MissingColumns(RequiredColumns()))
	assert.Empty(t, ds.MissingColumns(RequiredColumns()))
	assert.Equal(t, 5, dropped.Len())
}

func TestNewDatasetRaggedColumns(t *testing.T) {
	_, err := NewDataset(map[string][]float64{"a": {1, 2}, "b": {1}})
	assert.Error(t, err)
}
