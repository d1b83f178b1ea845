// Package model defines the data model and the capability contract shared
// by every predictive model variant in the slope-risk pipeline.
package model

import (
	"math/rand/v2"

	"github.com/slopewise/slopewise/pkg/errors"
)

// TrainingData holds a tabular supervised dataset: one fixed-length numeric
// feature vector per sample with a parallel numeric label. FeatureNames is
// optional; consumers must not assume names exist.
type TrainingData struct {
	Features     [][]float64
	Labels       []float64
	FeatureNames []string
}

// NumSamples returns the number of rows.
func (d *TrainingData) NumSamples() int {
	return len(d.Features)
}

// NumFeatures returns the feature-vector length F, or 0 for empty data.
func (d *TrainingData) NumFeatures() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// Validate checks the dataset invariants: features and labels parallel,
// every feature vector of identical length F, and F >= 1.
func (d *TrainingData) Validate() error {
	if len(d.Features) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "training data")
	}
	if len(d.Features) != len(d.Labels) {
		return errors.NewDimensionError("TrainingData.Validate", len(d.Features), len(d.Labels), 0)
	}
	f := len(d.Features[0])
	if f < 1 {
		return errors.NewValidationError("features", "feature vectors must have at least one element", f)
	}
	for _, row := range d.Features {
		if len(row) != f {
			return errors.NewDimensionError("TrainingData.Validate", f, len(row), 1)
		}
	}
	if len(d.FeatureNames) > 0 && len(d.FeatureNames) != f {
		return errors.NewDimensionError("TrainingData.Validate", f, len(d.FeatureNames), 1)
	}
	return nil
}

// Subset returns a new dataset containing the rows at the given indices.
// The underlying feature slices are shared, not copied.
func (d *TrainingData) Subset(indices []int) *TrainingData {
	sub := &TrainingData{
		Features:     make([][]float64, len(indices)),
		Labels:       make([]float64, len(indices)),
		FeatureNames: d.FeatureNames,
	}
	for i, idx := range indices {
		sub.Features[i] = d.Features[idx]
		sub.Labels[i] = d.Labels[idx]
	}
	return sub
}

// Split partitions the dataset into train and test portions. testSize is
// the held-out fraction in (0,1); rows are shuffled with the given seed
// before splitting so the split is randomized but reproducible.
func (d *TrainingData) Split(testSize float64, seed int64) (train, test *TrainingData) {
	n := d.NumSamples()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTest := int(float64(n) * testSize)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	return d.Subset(indices[:n-nTest]), d.Subset(indices[n-nTest:])
}

// FeatureName returns the name of feature i, or an empty string when no
// names were supplied.
func (d *TrainingData) FeatureName(i int) string {
	if i < 0 || i >= len(d.FeatureNames) {
		return ""
	}
	return d.FeatureNames[i]
}
