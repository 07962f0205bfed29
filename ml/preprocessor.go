package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature on its training mean and divides by its
// population standard deviation. Constant features keep a scale of 1.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

type scalerState struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Fit(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	width := len(features[0])
	mean := make([]float64, width)
	scale := make([]float64, width)
	column := make([]float64, len(features))
	for j := 0; j < width; j++ {
		for i, row := range features {
			if len(row) != width {
				return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
			}
			column[i] = row[j]
		}
		m, std := stat.PopMeanStdDev(column, nil)
		mean[j] = m
		if std == 0 {
			std = 1
		}
		scale[j] = std
	}
	s.mean = mean
	s.scale = scale
	return nil
}

func (s *StandardScaler) Fitted() bool {
	return len(s.mean) > 0
}

func (s *StandardScaler) Transform(features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i, row := range features {
		scaled, err := s.TransformVector(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *StandardScaler) TransformVector(vector []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, errors.New("scaler not fitted")
	}
	if len(vector) != len(s.mean) {
		return nil, fmt.Errorf("got %d features, expected %d", len(vector), len(s.mean))
	}
	out := make([]float64, len(vector))
	for j, value := range vector {
		out[j] = (value - s.mean[j]) / s.scale[j]
	}
	return out, nil
}

func (s *StandardScaler) state() scalerState {
	return scalerState{
		Mean:  append([]float64(nil), s.mean...),
		Scale: append([]float64(nil), s.scale...),
	}
}

func (s *StandardScaler) restore(st scalerState) error {
	if len(st.Mean) != FeatureCount || len(st.Scale) != FeatureCount {
		return fmt.Errorf("scaler has %d/%d statistics, expected %d", len(st.Mean), len(st.Scale), FeatureCount)
	}
	for j, scale := range st.Scale {
		if scale == 0 {
			return fmt.Errorf("scaler feature %d has zero scale", j)
		}
	}
	s.mean = append([]float64(nil), st.Mean...)
	s.scale = append([]float64(nil), st.Scale...)
	return nil
}
