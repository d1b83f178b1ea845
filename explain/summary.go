package explain

import (
	"fmt"
	"sort"
	"strings"
)

// Risk tier boundaries over the predicted risk score.
const (
	lowRiskCeiling    = 0.3
	mediumRiskCeiling = 0.6
	highRiskCeiling   = 0.8
)

// riskLevelFor maps a prediction to its qualitative tier.
func riskLevelFor(prediction float64) RiskLevel {
	switch {
	case prediction < lowRiskCeiling:
		return RiskLow
	case prediction < mediumRiskCeiling:
		return RiskMedium
	case prediction < highRiskCeiling:
		return RiskHigh
	default:
		return RiskCritical
	}
}

var recommendationsByRisk = map[RiskLevel][]string{
	RiskLow: {
		"Continue routine monitoring at the standard observation interval.",
		"No operational changes required at this risk level.",
	},
	RiskMedium: {
		"Increase monitoring frequency on the highlighted sensors.",
		"Review recent readings for the dominant contributing factors.",
		"Verify drainage and surface-water controls are functioning.",
	},
	RiskHigh: {
		"Restrict non-essential access to the affected slope area.",
		"Escalate to the geotechnical engineer on duty for assessment.",
		"Deploy additional instrumentation near the dominant factors.",
	},
	RiskCritical: {
		"Evacuate personnel and equipment from the hazard zone immediately.",
		"Activate the trigger action response plan for slope instability.",
		"Initiate continuous real-time monitoring until risk subsides.",
	},
}

// summarize derives the qualitative portion of an explanation from its
// attributions. topN bounds key factors; zero means all.
func summarize(prediction float64, attrs []FeatureAttribution, topN int) Summary {
	level := riskLevelFor(prediction)
	factors := topFactors(attrs, topN)

	var b strings.Builder
	fmt.Fprintf(&b, "The model assigns a %s risk level with a predicted score of %.3f.", strings.ToLower(string(level)), prediction)
	if len(factors) > 0 {
		names := make([]string, len(factors))
		for i, f := range factors {
			names[i] = f.FeatureName
		}
		fmt.Fprintf(&b, " The assessment is driven primarily by %s.", strings.Join(names, ", "))
		top := factors[0]
		if top.Contribution >= 0 {
			fmt.Fprintf(&b, " %s is pushing the risk estimate upward.", top.FeatureName)
		} else {
			fmt.Fprintf(&b, " %s is pulling the risk estimate downward.", top.FeatureName)
		}
	}

	recs := recommendationsByRisk[level]
	out := make([]string, len(recs))
	copy(out, recs)

	return Summary{
		RiskLevel:       level,
		Text:            b.String(),
		KeyFactors:      factors,
		Recommendations: out,
	}
}

// topFactors returns the n attributions with the largest absolute
// importance, in descending order. Ties keep input order.
func topFactors(attrs []FeatureAttribution, n int) []FeatureAttribution {
	sorted := make([]FeatureAttribution, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
