package ml

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RSquared is the coefficient of determination of predicted against actual.
// A constant target scores 1 when matched exactly and 0 otherwise.
func RSquared(predicted, actual []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, errors.New("no samples to score")
	}
	if len(predicted) != len(actual) {
		return 0, errors.New("predicted and actual size mismatch")
	}
	if floats.Max(actual) == floats.Min(actual) {
		if floats.Equal(predicted, actual) {
			return 1, nil
		}
		return 0, nil
	}
	return stat.RSquaredFrom(predicted, actual, nil), nil
}
