// Package tree implements a CART-style regression tree used as the base
// learner for the bagged and boosted ensemble variants. Splits minimise the
// sum of squared errors; per-feature split gains are accumulated as an
// importance proxy.
package tree

import (
	"math/rand/v2"
	"sort"

	"github.com/slopewise/slopewise/pkg/errors"
)

// Params controls tree growth.
type Params struct {
	// MaxDepth limits tree depth; values < 1 mean effectively unlimited.
	MaxDepth int
	// MinSamplesLeaf is the minimum number of samples in each leaf.
	MinSamplesLeaf int
	// MaxFeatures is the number of features considered per split; 0 means
	// all features. Random forests pass a subset size here.
	MaxFeatures int
}

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	leaf      bool
	value     float64
}

// Tree is a grown regression tree.
type Tree struct {
	nodes     []node
	nFeatures int
	gains     []float64
}

// Grow fits a regression tree to the given rows. rng drives per-split
// feature subsampling and may be nil when MaxFeatures is 0.
func Grow(features [][]float64, labels []float64, p Params, rng *rand.Rand) (*Tree, error) {
	if len(features) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "tree.Grow")
	}
	if len(features) != len(labels) {
		return nil, errors.NewDimensionError("tree.Grow", len(features), len(labels), 0)
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}

	t := &Tree{
		nFeatures: len(features[0]),
		gains:     make([]float64, len(features[0])),
	}

	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	t.grow(features, labels, indices, 0, p, rng)
	return t, nil
}

// grow appends the subtree for the given rows and returns its root index.
func (t *Tree) grow(features [][]float64, labels []float64, indices []int, depth int, p Params, rng *rand.Rand) int {
	mean := meanAt(labels, indices)

	if (p.MaxDepth >= 1 && depth >= p.MaxDepth) || len(indices) < 2*p.MinSamplesLeaf {
		return t.addLeaf(mean)
	}

	parentSSE := sseAt(labels, indices, mean)
	if parentSSE <= 1e-12 {
		return t.addLeaf(mean)
	}

	feature, threshold, gain := t.bestSplit(features, labels, indices, parentSSE, p, rng)
	if feature < 0 {
		return t.addLeaf(mean)
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, idx := range indices {
		if features[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) < p.MinSamplesLeaf || len(right) < p.MinSamplesLeaf {
		return t.addLeaf(mean)
	}

	t.gains[feature] += gain

	// Reserve the split node before growing children so child indices are
	// known when we fill it in.
	nodeIdx := len(t.nodes)
	t.nodes = append(t.nodes, node{})
	leftIdx := t.grow(features, labels, left, depth+1, p, rng)
	rightIdx := t.grow(features, labels, right, depth+1, p, rng)
	t.nodes[nodeIdx] = node{
		feature:   feature,
		threshold: threshold,
		left:      leftIdx,
		right:     rightIdx,
	}
	return nodeIdx
}

func (t *Tree) addLeaf(value float64) int {
	t.nodes = append(t.nodes, node{leaf: true, value: value})
	return len(t.nodes) - 1
}

// bestSplit scans candidate features for the threshold with the largest SSE
// reduction. Returns feature -1 when no split improves on the parent.
func (t *Tree) bestSplit(features [][]float64, labels []float64, indices []int, parentSSE float64, p Params, rng *rand.Rand) (int, float64, float64) {
	candidates := t.candidateFeatures(p, rng)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 1e-9 // require a strictly positive improvement

	n := len(indices)
	order := make([]int, n)

	for _, f := range candidates {
		copy(order, indices)
		sortByFeature(order, features, f)

		// Prefix sums over the sorted order let each threshold be scored
		// in O(1).
		var sumLeft, sumSqLeft float64
		sumTotal, sumSqTotal := 0.0, 0.0
		for _, idx := range order {
			sumTotal += labels[idx]
			sumSqTotal += labels[idx] * labels[idx]
		}

		for i := 0; i < n-1; i++ {
			y := labels[order[i]]
			sumLeft += y
			sumSqLeft += y * y

			cur := features[order[i]][f]
			next := features[order[i+1]][f]
			if cur == next {
				continue
			}
			nL := i + 1
			nR := n - nL
			if nL < p.MinSamplesLeaf || nR < p.MinSamplesLeaf {
				continue
			}

			sseLeft := sumSqLeft - sumLeft*sumLeft/float64(nL)
			sumRight := sumTotal - sumLeft
			sseRight := (sumSqTotal - sumSqLeft) - sumRight*sumRight/float64(nR)

			gain := parentSSE - sseLeft - sseRight
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return -1, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}

func (t *Tree) candidateFeatures(p Params, rng *rand.Rand) []int {
	if p.MaxFeatures <= 0 || p.MaxFeatures >= t.nFeatures || rng == nil {
		all := make([]int, t.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}

	perm := rng.Perm(t.nFeatures)
	return perm[:p.MaxFeatures]
}

// Predict returns the tree's prediction for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	idx := 0
	for {
		n := &t.nodes[idx]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			idx = n.left
		} else {
			idx = n.right
		}
	}
}

// FeatureGains returns the unnormalised SSE reduction accumulated per
// feature across all splits.
func (t *Tree) FeatureGains() []float64 {
	out := make([]float64, len(t.gains))
	copy(out, t.gains)
	return out
}

// NumNodes returns the number of nodes in the grown tree.
func (t *Tree) NumNodes() int {
	return len(t.nodes)
}

func meanAt(labels []float64, indices []int) float64 {
	var sum float64
	for _, idx := range indices {
		sum += labels[idx]
	}
	return sum / float64(len(indices))
}

func sseAt(labels []float64, indices []int, mean float64) float64 {
	var sse float64
	for _, idx := range indices {
		diff := labels[idx] - mean
		sse += diff * diff
	}
	return sse
}

// sortByFeature orders indices ascending by the given feature column.
func sortByFeature(indices []int, features [][]float64, f int) {
	sort.Slice(indices, func(a, b int) bool {
		return features[indices[a]][f] < features[indices[b]][f]
	})
}
