package explain

import (
	"math"
	"math/rand/v2"

	"github.com/slopewise/slopewise/core/model"
	"github.com/slopewise/slopewise/pkg/errors"
)

// maxBackgroundRows caps how many background rows feed the baseline so
// explanation cost stays bounded for large datasets.
const maxBackgroundRows = 100

// shapExplain approximates additive attributions by background
// substitution. For each feature we replace the instance's value with
// values drawn from the background and measure the prediction delta;
// the deltas are then rescaled so their sum equals prediction minus
// base value, which is what makes the output additive.
func shapExplain(predictor Predictor, instance []float64, names []string, background *model.TrainingData, rounds int, rng *rand.Rand) (*ShapExplanation, error) {
	baseValue, err := meanPrediction(predictor, background)
	if err != nil {
		return nil, err
	}

	res, err := predictor.Predict(instance)
	if err != nil {
		return nil, err
	}
	prediction := res.Prediction

	nFeatures := len(instance)
	nRows := background.NumSamples()
	if nRows > maxBackgroundRows {
		nRows = maxBackgroundRows
	}

	raw := make([]float64, nFeatures)
	variances := make([]float64, nFeatures)
	perturbed := make([]float64, nFeatures)

	for j := 0; j < nFeatures; j++ {
		deltas := make([]float64, 0, rounds)
		for r := 0; r < rounds; r++ {
			copy(perturbed, instance)
			row := background.Features[rng.IntN(nRows)]
			perturbed[j] = row[j]

			pr, err := predictor.Predict(perturbed)
			if err != nil {
				return nil, errors.Wrapf(err, "explain: shap perturbation for feature %d", j)
			}
			deltas = append(deltas, prediction-pr.Prediction)
		}

		var mean float64
		for _, d := range deltas {
			mean += d
		}
		mean /= float64(len(deltas))
		raw[j] = mean

		var sq float64
		for _, d := range deltas {
			sq += (d - mean) * (d - mean)
		}
		variances[j] = sq / float64(len(deltas))
	}

	// Rescale so the values are additive against the baseline.
	shapValues := make([]float64, nFeatures)
	target := prediction - baseValue
	var rawSum float64
	for _, v := range raw {
		rawSum += v
	}
	if math.Abs(rawSum) > 1e-12 {
		scale := target / rawSum
		for j, v := range raw {
			shapValues[j] = v * scale
		}
	} else if nFeatures > 0 {
		// Perturbation told us nothing; spread the gap evenly.
		share := target / float64(nFeatures)
		for j := range shapValues {
			shapValues[j] = share
		}
	}

	attrs := make([]FeatureAttribution, nFeatures)
	for j := range attrs {
		attrs[j] = FeatureAttribution{
			FeatureName:  names[j],
			Importance:   math.Abs(shapValues[j]),
			Contribution: shapValues[j],
			Confidence:   1 / (1 + variances[j]),
		}
	}

	return &ShapExplanation{
		BaseValue:    baseValue,
		Prediction:   prediction,
		ShapValues:   shapValues,
		Attributions: attrs,
	}, nil
}

// meanPrediction is the model's expected output over the background
// sample, capped at maxBackgroundRows rows.
func meanPrediction(predictor Predictor, background *model.TrainingData) (float64, error) {
	n := background.NumSamples()
	if n > maxBackgroundRows {
		n = maxBackgroundRows
	}
	var sum float64
	for i := 0; i < n; i++ {
		r, err := predictor.Predict(background.Features[i])
		if err != nil {
			return 0, errors.Wrap(err, "explain: background prediction")
		}
		sum += r.Prediction
	}
	return sum / float64(n), nil
}
