package explain

const (
	positiveColor = "#d62728"
	negativeColor = "#1f77b4"
)

// buildCharts assembles every chart-ready structure from the additive
// attributions. Bar colors encode contribution sign only, so at most
// two distinct colors appear.
func buildCharts(shap *ShapExplanation) Charts {
	n := len(shap.ShapValues)

	bar := BarChart{
		Labels: make([]string, n),
		Values: make([]float64, n),
		Colors: make([]string, n),
	}
	for i, attr := range shap.Attributions {
		bar.Labels[i] = attr.FeatureName
		bar.Values[i] = attr.Contribution
		if attr.Contribution >= 0 {
			bar.Colors[i] = positiveColor
		} else {
			bar.Colors[i] = negativeColor
		}
	}

	contributions := make([]float64, n)
	copy(contributions, shap.ShapValues)

	names := make([]string, n)
	for i, attr := range shap.Attributions {
		names[i] = attr.FeatureName
	}
	values := make([]float64, n)
	copy(values, shap.ShapValues)

	return Charts{
		Bar: bar,
		Waterfall: Waterfall{
			BaseValue:       shap.BaseValue,
			Contributions:   contributions,
			FinalPrediction: shap.Prediction,
		},
		Force: ForcePlot{
			ShapValues:   values,
			FeatureNames: names,
		},
	}
}
