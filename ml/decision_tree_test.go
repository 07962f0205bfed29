package ml

import (
	"math/rand"
	"testing"
)

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	targets := []float64{1, 1, 5, 5}

	model := NewDecisionTree(0, 2)
	if err := model.Fit(features, targets, []int{0, 1, 2, 3}, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err := model.Predict([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 1 {
		t.Fatalf("expected 1, got %f", value)
	}
	value, err = model.Predict([]float64{0.85, 0.85})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 5 {
		t.Fatalf("expected 5, got %f", value)
	}
}

func TestDecisionTreeMaxDepth(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {4}}
	targets := []float64{1, 2, 3, 4}

	model := NewDecisionTree(1, 2)
	if err := model.Fit(features, targets, []int{0, 1, 2, 3}, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(model.Nodes()); got != 3 {
		t.Fatalf("expected a single split (3 nodes), got %d", got)
	}
	value, _ := model.Predict([]float64{1})
	if value != 1.5 {
		t.Fatalf("expected left leaf mean 1.5, got %f", value)
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	model := NewDecisionTree(0, 2)
	if _, err := model.Predict([]float64{1}); err != ErrModelNotTrained {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestDecisionTreeRestoreRejectsCycles(t *testing.T) {
	model := NewDecisionTree(0, 2)
	nodes := []TreeNode{
		{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 1},
		{FeatureIdx: -1, Value: 2},
	}
	if err := model.restore(nodes); err == nil {
		t.Fatal("expected error for self-referencing node")
	}
}
