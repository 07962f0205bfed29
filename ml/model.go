package ml

// Side names one of the two estimators in a ModelPair.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// ModelPair is the unit that is trained, saved and loaded: one pipeline per side.
type ModelPair struct {
	Home *Pipeline
	Away *Pipeline
}

// NewModelPair returns two untrained, identically configured pipelines.
func NewModelPair(config PipelineConfig) *ModelPair {
	return &ModelPair{
		Home: NewPipeline(config),
		Away: NewPipeline(config),
	}
}

func (p *ModelPair) Trained() bool {
	return p != nil && p.Home != nil && p.Away != nil && p.Home.Fitted() && p.Away.Fitted()
}

func (p *ModelPair) Pipeline(side Side) *Pipeline {
	switch side {
	case SideHome:
		return p.Home
	case SideAway:
		return p.Away
	default:
		return nil
	}
}
