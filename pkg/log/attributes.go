package log

// Common attribute keys for structured log records emitted by the
// modelling pipeline. Using shared constants keeps field names consistent
// across packages so dashboards can aggregate on them.
const (
	// ComponentKey identifies the emitting component, e.g. "ensemble.pipeline".
	ComponentKey = "component"

	// ModelNameKey is the pipeline-unique name of a model entry.
	ModelNameKey = "model"

	// ModelTypeKey is the model variant tag, e.g. "random_forest".
	ModelTypeKey = "model_type"

	// OperationKey names the operation being performed, e.g. "train".
	OperationKey = "operation"

	// SamplesKey is the number of samples involved in an operation.
	SamplesKey = "samples"

	// FeaturesKey is the number of features involved in an operation.
	FeaturesKey = "features"

	// FoldKey is the index of a cross-validation fold.
	FoldKey = "fold"

	// DurationMsKey is the elapsed wall time of an operation in milliseconds.
	DurationMsKey = "duration_ms"

	// ScoreKey is a model quality score such as a fold R2.
	ScoreKey = "score"

	// CacheKeyKey is the fingerprint of an explanation cache entry.
	CacheKeyKey = "cache_key"
)
