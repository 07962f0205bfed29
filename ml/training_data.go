package ml

import (
	"errors"
	"math"
	"math/rand"
)

// SampleConfig controls GenerateSampleGames.
type SampleConfig struct {
	Rows        int
	Seed        int64
	NoiseStdDev float64
}

func DefaultSampleConfig() SampleConfig {
	return SampleConfig{Rows: 1000, Seed: 42, NoiseStdDev: 1.0}
}

// GenerateSampleGames builds synthetic games whose run totals are a noisy linear
// function of the features:
//
//	home = 20*home_avg - 0.5*away_era + 0.8*home_rpg + noise
//	away = 20*away_avg - 0.5*home_era + 0.8*away_rpg + noise
//
// clamped at zero.
func GenerateSampleGames(config SampleConfig) ([]GameRow, error) {
	if config.Rows <= 0 {
		return nil, errors.New("rows must be positive")
	}
	if config.NoiseStdDev < 0 {
		return nil, errors.New("noise must not be negative")
	}
	rng := rand.New(rand.NewSource(config.Seed))
	uniform := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}

	games := make([]GameRow, config.Rows)
	for i := range games {
		f := FeatureRecord{
			HomeTeamBattingAvg:  uniform(0.220, 0.280),
			HomeTeamERA:         uniform(3.0, 5.0),
			HomeTeamRunsPerGame: uniform(3.0, 6.0),
			AwayTeamBattingAvg:  uniform(0.220, 0.280),
			AwayTeamERA:         uniform(3.0, 5.0),
			AwayTeamRunsPerGame: uniform(3.0, 6.0),
		}
		home := f.HomeTeamBattingAvg*20 - f.AwayTeamERA*0.5 + f.HomeTeamRunsPerGame*0.8
		away := f.AwayTeamBattingAvg*20 - f.HomeTeamERA*0.5 + f.AwayTeamRunsPerGame*0.8
		games[i] = GameRow{
			Features:     f,
			HomeTeamRuns: math.Max(0, home+rng.NormFloat64()*config.NoiseStdDev),
			AwayTeamRuns: math.Max(0, away+rng.NormFloat64()*config.NoiseStdDev),
		}
	}
	return games, nil
}

func GenerateSampleData(config SampleConfig) (*Dataset, error) {
	games, err := GenerateSampleGames(config)
	if err != nil {
		return nil, err
	}
	return DatasetFromGames(games), nil
}

// SampleFeatureRecord is the matchup used to smoke-test a freshly trained model.
func SampleFeatureRecord() FeatureRecord {
	return FeatureRecord{
		HomeTeamBattingAvg:  0.265,
		HomeTeamERA:         3.75,
		HomeTeamRunsPerGame: 4.8,
		AwayTeamBattingAvg:  0.248,
		AwayTeamERA:         4.25,
		AwayTeamRunsPerGame: 4.2,
	}
}
