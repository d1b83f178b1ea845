package explain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/slopewise/slopewise/pkg/errors"
)

// limeExplain fits a local linear surrogate around the instance. It
// samples numSamples Gaussian perturbations, queries the model for
// each, and solves a weighted least squares where closer perturbations
// weigh more. The surrogate's coefficients become the attributions and
// its R2 on the perturbed set is the local model score.
func limeExplain(predictor Predictor, instance []float64, names []string, numSamples int, rng *rand.Rand) (*LimeExplanation, error) {
	res, err := predictor.Predict(instance)
	if err != nil {
		return nil, err
	}
	prediction := res.Prediction

	nFeatures := len(instance)

	// Perturbation scale per feature, relative to magnitude with a floor
	// so zero-valued features still move.
	scales := make([]float64, nFeatures)
	for j, v := range instance {
		scales[j] = math.Abs(v) * 0.1
		if scales[j] < 0.1 {
			scales[j] = 0.1
		}
	}

	samples := make([][]float64, numSamples)
	targets := make([]float64, numSamples)
	weights := make([]float64, numSamples)

	for i := 0; i < numSamples; i++ {
		row := make([]float64, nFeatures)
		var dist float64
		for j := range row {
			noise := rng.NormFloat64() * scales[j]
			row[j] = instance[j] + noise
			z := noise / scales[j]
			dist += z * z
		}

		pr, err := predictor.Predict(row)
		if err != nil {
			return nil, errors.Wrapf(err, "explain: lime perturbation %d", i)
		}
		samples[i] = row
		targets[i] = pr.Prediction
		// Exponential kernel decaying with normalised distance.
		weights[i] = math.Exp(-dist / float64(nFeatures))
	}

	coefs, intercept, err := weightedLeastSquares(samples, targets, weights)
	if err != nil {
		return nil, err
	}

	score := surrogateR2(samples, targets, weights, coefs, intercept)
	if score < 0 {
		score = 0
	}

	attrs := make([]FeatureAttribution, nFeatures)
	used := make([]string, nFeatures)
	for j := range attrs {
		attrs[j] = FeatureAttribution{
			FeatureName:  names[j],
			Importance:   math.Abs(coefs[j]),
			Contribution: coefs[j] * instance[j],
			Confidence:   score,
		}
		used[j] = names[j]
	}

	return &LimeExplanation{
		Prediction:      prediction,
		LocalModelScore: score,
		Attributions:    attrs,
		UsedFeatures:    used,
	}, nil
}

// weightedLeastSquares solves min ||W^(1/2)(Xb - y)|| for b with an
// intercept column, via QR on the sqrt-weight scaled system.
func weightedLeastSquares(samples [][]float64, targets, weights []float64) (coefs []float64, intercept float64, err error) {
	n := len(samples)
	f := len(samples[0])

	design := mat.NewDense(n, f+1, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		w := math.Sqrt(weights[i])
		design.Set(i, 0, w)
		for j := 0; j < f; j++ {
			design.Set(i, j+1, w*samples[i][j])
		}
		rhs.SetVec(i, w*targets[i])
	}

	var qr mat.QR
	qr.Factorize(design)

	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, rhs); err != nil {
		return nil, 0, errors.Wrap(err, "explain: surrogate solve")
	}

	intercept = solution.AtVec(0)
	coefs = make([]float64, f)
	for j := 0; j < f; j++ {
		coefs[j] = solution.AtVec(j + 1)
	}
	return coefs, intercept, nil
}

// surrogateR2 scores the linear surrogate on the perturbed set using
// the same kernel weights the fit used, so nearby perturbations count
// more toward the quality score.
func surrogateR2(samples [][]float64, targets, weights, coefs []float64, intercept float64) float64 {
	var weightSum, mean float64
	for i, y := range targets {
		mean += weights[i] * y
		weightSum += weights[i]
	}
	if weightSum < 1e-12 {
		return 0
	}
	mean /= weightSum

	var ssRes, ssTot float64
	for i, row := range samples {
		pred := intercept
		for j, x := range row {
			pred += coefs[j] * x
		}
		ssRes += weights[i] * (targets[i] - pred) * (targets[i] - pred)
		ssTot += weights[i] * (targets[i] - mean) * (targets[i] - mean)
	}
	if ssTot < 1e-12 {
		return 0
	}
	return 1 - ssRes/ssTot
}
