package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

const (
	FeatureHomeBattingAvg  = "home_team_batting_avg"
	FeatureHomeERA         = "home_team_era"
	FeatureHomeRunsPerGame = "home_team_runs_per_game"
	FeatureAwayBattingAvg  = "away_team_batting_avg"
	FeatureAwayERA         = "away_team_era"
	FeatureAwayRunsPerGame = "away_team_runs_per_game"

	LabelHomeRuns = "home_team_runs"
	LabelAwayRuns = "away_team_runs"
)

// FeatureCount is the width of every feature vector fed to a pipeline.
const FeatureCount = 6

// FeatureRecord holds the pre-game team statistics for one matchup.
type FeatureRecord struct {
	HomeTeamBattingAvg  float64 `json:"home_team_batting_avg"`
	HomeTeamERA         float64 `json:"home_team_era"`
	HomeTeamRunsPerGame float64 `json:"home_team_runs_per_game"`
	AwayTeamBattingAvg  float64 `json:"away_team_batting_avg"`
	AwayTeamERA         float64 `json:"away_team_era"`
	AwayTeamRunsPerGame float64 `json:"away_team_runs_per_game"`
}

// FeatureNames returns the feature columns in vector order.
func FeatureNames() []string {
	return []string{
		FeatureHomeBattingAvg,
		FeatureHomeERA,
		FeatureHomeRunsPerGame,
		FeatureAwayBattingAvg,
		FeatureAwayERA,
		FeatureAwayRunsPerGame,
	}
}

func LabelNames() []string {
	return []string{LabelHomeRuns, LabelAwayRuns}
}

// RequiredColumns lists every column Train reads: six features then two labels.
func RequiredColumns() []string {
	return append(FeatureNames(), LabelNames()...)
}

func FeatureVector(record FeatureRecord) []float64 {
	return []float64{
		record.HomeTeamBattingAvg,
		record.HomeTeamERA,
		record.HomeTeamRunsPerGame,
		record.AwayTeamBattingAvg,
		record.AwayTeamERA,
		record.AwayTeamRunsPerGame,
	}
}

// Validate rejects NaN and infinite values.
func (r FeatureRecord) Validate() error {
	for i, value := range FeatureVector(r) {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: feature %s is not a finite number", ErrPredictionInputInvalid, FeatureNames()[i])
		}
	}
	return nil
}

// FeatureRecordFromMap builds a record from a loosely typed mapping. Every one of
// the six features must be present and numeric; unknown keys are rejected.
func FeatureRecordFromMap(values map[string]any) (FeatureRecord, error) {
	known := make(map[string]struct{}, FeatureCount)
	vector := make([]float64, FeatureCount)
	for i, name := range FeatureNames() {
		known[name] = struct{}{}
		raw, ok := values[name]
		if !ok || raw == nil {
			return FeatureRecord{}, fmt.Errorf("%w: missing feature %s", ErrPredictionInputInvalid, name)
		}
		value, err := toFloat(raw)
		if err != nil {
			return FeatureRecord{}, fmt.Errorf("%w: feature %s: %v", ErrPredictionInputInvalid, name, err)
		}
		vector[i] = value
	}

	var unknown []string
	for key := range values {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return FeatureRecord{}, fmt.Errorf("%w: unknown feature %s", ErrPredictionInputInvalid, strings.Join(unknown, ", "))
	}

	record := FeatureRecord{
		HomeTeamBattingAvg:  vector[0],
		HomeTeamERA:         vector[1],
		HomeTeamRunsPerGame: vector[2],
		AwayTeamBattingAvg:  vector[3],
		AwayTeamERA:         vector[4],
		AwayTeamRunsPerGame: vector[5],
	}
	if err := record.Validate(); err != nil {
		return FeatureRecord{}, err
	}
	return record, nil
}

// ParseFeatureRecord decodes a JSON object into a validated record.
func ParseFeatureRecord(data []byte) (FeatureRecord, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var values map[string]any
	if err := decoder.Decode(&values); err != nil {
		return FeatureRecord{}, fmt.Errorf("%w: %v", ErrPredictionInputInvalid, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return FeatureRecord{}, fmt.Errorf("%w: extra data after JSON object", ErrPredictionInputInvalid)
	}
	if values == nil {
		return FeatureRecord{}, fmt.Errorf("%w: features must be a JSON object", ErrPredictionInputInvalid)
	}
	return FeatureRecordFromMap(values)
}

// UnmarshalJSON applies the same strict checks as ParseFeatureRecord.
func (r *FeatureRecord) UnmarshalJSON(data []byte) error {
	record, err := ParseFeatureRecord(data)
	if err != nil {
		return err
	}
	*r = record
	return nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", raw)
	}
}
