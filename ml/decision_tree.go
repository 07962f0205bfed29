package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// DecisionTree is a CART regression tree stored as a flat node slice. Node 0 is
// the root; internal nodes always point at children with larger indices.
type DecisionTree struct {
	nodes           []TreeNode
	maxDepth        int
	minSamplesSplit int
}

type TreeNode struct {
	FeatureIdx int     `json:"f"`
	Threshold  float64 `json:"t,omitempty"`
	LeftChild  int     `json:"l,omitempty"`
	RightChild int     `json:"r,omitempty"`
	Value      float64 `json:"v"`
}

func (n TreeNode) isLeaf() bool {
	return n.FeatureIdx < 0
}

// NewDecisionTree creates an untrained tree. maxDepth <= 0 grows until leaves are
// pure or smaller than minSamplesSplit.
func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &DecisionTree{maxDepth: maxDepth, minSamplesSplit: minSamplesSplit}
}

// Fit trains the tree on the given sample indices, which may repeat (bootstrap).
// rng decides the order in which features are tried at each node.
func (dt *DecisionTree) Fit(features [][]float64, targets []float64, samples []int, rng *rand.Rand) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if len(samples) == 0 {
		return errors.New("no samples to fit")
	}

	b := &treeBuilder{
		tree:     dt,
		features: features,
		targets:  targets,
		width:    len(features[0]),
		rng:      rng,
	}
	dt.nodes = dt.nodes[:0]
	b.build(append([]int(nil), samples...), 0)
	return nil
}

func (dt *DecisionTree) Fitted() bool {
	return len(dt.nodes) > 0
}

func (dt *DecisionTree) Predict(features []float64) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, ErrModelNotTrained
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.isLeaf() {
			return node.Value, nil
		}
		if node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTree) Nodes() []TreeNode {
	return append([]TreeNode(nil), dt.nodes...)
}

// restore validates a decoded node slice before adopting it, so a damaged file
// can never send Predict into a loop or out of bounds.
func (dt *DecisionTree) restore(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.isLeaf() {
			continue
		}
		if node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d splits on feature %d", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
	}
	dt.nodes = append([]TreeNode(nil), nodes...)
	return nil
}

type treeBuilder struct {
	tree     *DecisionTree
	features [][]float64
	targets  []float64
	width    int
	rng      *rand.Rand
}

func (b *treeBuilder) build(samples []int, depth int) int {
	idx := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, TreeNode{FeatureIdx: -1, Value: b.mean(samples)})

	if len(samples) < b.tree.minSamplesSplit || (b.tree.maxDepth > 0 && depth >= b.tree.maxDepth) || b.constant(samples) {
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}

	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if b.features[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)
	b.tree.nodes[idx] = TreeNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  leftIdx,
		RightChild: rightIdx,
		Value:      b.tree.nodes[idx].Value,
	}
	return idx
}

// bestSplit finds the threshold with the largest reduction in squared error.
// Maximising sumL²/nL + sumR²/nR is equivalent and avoids a second pass.
func (b *treeBuilder) bestSplit(samples []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestProxy := 0.0

	var total float64
	for _, s := range samples {
		total += b.targets[s]
	}
	n := float64(len(samples))
	baseline := total * total / n

	sorted := make([]int, len(samples))
	for _, feature := range b.rng.Perm(b.width) {
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool {
			return b.features[sorted[i]][feature] < b.features[sorted[j]][feature]
		})

		var leftSum float64
		for i := 1; i < len(sorted); i++ {
			leftSum += b.targets[sorted[i-1]]
			prev := b.features[sorted[i-1]][feature]
			next := b.features[sorted[i]][feature]
			if next <= prev {
				continue
			}
			nl := float64(i)
			nr := n - nl
			rightSum := total - leftSum
			proxy := leftSum*leftSum/nl + rightSum*rightSum/nr
			if proxy > baseline+1e-12 && (bestFeature == -1 || proxy > bestProxy) {
				bestProxy = proxy
				bestFeature = feature
				bestThreshold = midpoint(prev, next)
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (b *treeBuilder) mean(samples []int) float64 {
	var sum float64
	for _, s := range samples {
		sum += b.targets[s]
	}
	return sum / float64(len(samples))
}

func (b *treeBuilder) constant(samples []int) bool {
	first := b.targets[samples[0]]
	for _, s := range samples[1:] {
		if b.targets[s] != first {
			return false
		}
	}
	return true
}

func midpoint(a, b float64) float64 {
	mid := a + (b-a)/2
	if mid >= b {
		return a
	}
	return mid
}
