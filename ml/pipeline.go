package ml

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PipelineConfig configures the forest inside a Pipeline.
type PipelineConfig struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
	Workers         int   `json:"-"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		NEstimators:     100,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.NEstimators <= 0 {
		c.NEstimators = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	return c
}

// Pipeline standardizes features and feeds them to a random forest. The learned
// state of both stages is only created by Fit or by decoding a saved pipeline.
type Pipeline struct {
	config PipelineConfig
	scaler *StandardScaler
	forest *RandomForest
}

func NewPipeline(config PipelineConfig) *Pipeline {
	config = config.withDefaults()
	return &Pipeline{
		config: config,
		scaler: &StandardScaler{},
		forest: NewRandomForest(config),
	}
}

func (p *Pipeline) Config() PipelineConfig {
	return p.config
}

func (p *Pipeline) Fitted() bool {
	return p.scaler.Fitted() && p.forest.Fitted()
}

func (p *Pipeline) Fit(features [][]float64, targets []float64) error {
	scaler := &StandardScaler{}
	if err := scaler.Fit(features); err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.Transform(features)
	if err != nil {
		return err
	}
	forest := NewRandomForest(p.config)
	if err := forest.Fit(scaled, targets); err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}
	p.scaler = scaler
	p.forest = forest
	return nil
}

func (p *Pipeline) Predict(features []float64) (float64, error) {
	if !p.Fitted() {
		return 0, ErrModelNotTrained
	}
	scaled, err := p.scaler.TransformVector(features)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPredictionInputInvalid, err)
	}
	return p.forest.Predict(scaled)
}

func (p *Pipeline) PredictBatch(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		value, err := p.Predict(row)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

// Score returns R² on the given samples.
func (p *Pipeline) Score(features [][]float64, targets []float64) (float64, error) {
	predicted, err := p.PredictBatch(features)
	if err != nil {
		return 0, err
	}
	return RSquared(predicted, targets)
}

type pipelineState struct {
	Config PipelineConfig `json:"config"`
	Scaler scalerState    `json:"scaler"`
	Trees  [][]TreeNode   `json:"trees"`
}

func (p *Pipeline) MarshalJSON() ([]byte, error) {
	if !p.Fitted() {
		return nil, ErrModelNotTrained
	}
	return json.Marshal(pipelineState{
		Config: p.config,
		Scaler: p.scaler.state(),
		Trees:  p.forest.treeNodes(),
	})
}

func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var st pipelineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if len(st.Trees) == 0 {
		return errors.New("pipeline has no trees")
	}
	config := st.Config.withDefaults()
	scaler := &StandardScaler{}
	if err := scaler.restore(st.Scaler); err != nil {
		return err
	}
	forest := NewRandomForest(config)
	if err := forest.restore(st.Trees); err != nil {
		return err
	}
	p.config = config
	p.scaler = scaler
	p.forest = forest
	return nil
}
