package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages bootstrap-trained regression trees. Every tree gets its
// own seed drawn from Seed before fitting starts, so the result does not depend
// on how the trees are scheduled across workers.
type RandomForest struct {
	config PipelineConfig
	trees  []*DecisionTree
}

func NewRandomForest(config PipelineConfig) *RandomForest {
	return &RandomForest{config: config.withDefaults()}
}

func (f *RandomForest) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}

	rng := rand.New(rand.NewSource(f.config.Seed))
	seeds := make([]int64, f.config.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*DecisionTree, len(seeds))
	var g errgroup.Group
	g.SetLimit(f.workers())
	for i := range trees {
		g.Go(func() error {
			treeRng := rand.New(rand.NewSource(seeds[i]))
			samples := make([]int, len(features))
			for j := range samples {
				samples[j] = treeRng.Intn(len(features))
			}
			tree := NewDecisionTree(f.config.MaxDepth, f.config.MinSamplesSplit)
			if err := tree.Fit(features, targets, samples, treeRng); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.trees = trees
	return nil
}

func (f *RandomForest) Fitted() bool {
	return len(f.trees) > 0
}

func (f *RandomForest) Predict(features []float64) (float64, error) {
	if !f.Fitted() {
		return 0, ErrModelNotTrained
	}
	var sum float64
	for _, tree := range f.trees {
		value, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum / float64(len(f.trees)), nil
}

func (f *RandomForest) workers() int {
	if f.config.Workers > 0 {
		return f.config.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (f *RandomForest) treeNodes() [][]TreeNode {
	out := make([][]TreeNode, len(f.trees))
	for i, tree := range f.trees {
		out[i] = tree.Nodes()
	}
	return out
}

func (f *RandomForest) restore(trees [][]TreeNode) error {
	if len(trees) == 0 {
		return errors.New("forest has no trees")
	}
	restored := make([]*DecisionTree, len(trees))
	for i, nodes := range trees {
		tree := NewDecisionTree(f.config.MaxDepth, f.config.MinSamplesSplit)
		if err := tree.restore(nodes); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		restored[i] = tree
	}
	f.trees = restored
	return nil
}
