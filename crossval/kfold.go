// Package crossval provides k-fold cross-validation and exhaustive grid
// search over model hyperparameters.
package crossval

import (
	"math/rand/v2"

	"github.com/slopewise/slopewise/pkg/errors"
)

// Fold holds the row indices for one cross-validation split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits a dataset into k consecutive folds. With Shuffle set the
// row order is permuted first using a PCG stream seeded from Seed, so
// splits are reproducible for a fixed seed.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold returns a shuffling splitter with the given fold count and seed.
func NewKFold(nSplits int, seed int64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: true, Seed: seed}
}

// Split produces the folds for n samples. Fold sizes differ by at most
// one row. Returns a ValidationError when NSplits is below 2 or exceeds n.
func (k *KFold) Split(n int) ([]Fold, error) {
	if k.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", k.NSplits)
	}
	if k.NSplits > n {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", k.NSplits)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if k.Shuffle {
		rng := rand.New(rand.NewPCG(uint64(k.Seed), uint64(k.Seed)))
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	// The first n%k folds receive one extra row.
	base := n / k.NSplits
	extra := n % k.NSplits

	folds := make([]Fold, k.NSplits)
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := base
		if f < extra {
			size++
		}
		test := indices[start : start+size]

		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+size:]...)

		folds[f] = Fold{TrainIndices: train, TestIndices: test}
		start += size
	}
	return folds, nil
}
