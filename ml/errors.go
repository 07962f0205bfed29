package ml

import "errors"

var (
	// ErrStoreCorrupt marks a persisted model that exists but cannot be decoded
	// into a complete home/away pair.
	ErrStoreCorrupt = errors.New("model store corrupt or unreadable")

	// ErrMissingTrainingColumn is returned by Train when the dataset lacks one of
	// the six feature columns or the two label columns.
	ErrMissingTrainingColumn = errors.New("missing required training column")

	// ErrModelNotTrained is returned when predicting with pipelines that were never fitted.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrPredictionInputInvalid covers absent, unknown or non-numeric feature values.
	ErrPredictionInputInvalid = errors.New("invalid prediction input")

	ErrInsufficientData = errors.New("insufficient training data")
)
