// Package log defines standard attribute keys for the pipeline and the
// prediction service.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines from training and serving can be filtered
// the same way.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "XGBRegressor", "OneHotEncoder", "Pipeline"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "search", "clean", "evaluate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names involved in an operation.
	ColumnsKey = "data.columns"

	// DroppedRowsKey records how many rows a cleaning step removed.
	DroppedRowsKey = "data.dropped_rows"

	// PathKey records a file read or written by the operation.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// MSEKey records mean squared error.
	MSEKey = "metrics.mse"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// ScoreKey records a cross-validation score.
	ScoreKey = "metrics.cv_score"

	// IterationKey records the current boosting round.
	IterationKey = "training.iteration"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// PredictionKey records a single prediction value.
	PredictionKey = "preds.value"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"

	// ErrorTypeKey names the root cause type of a logged error.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// CandidatesKey records the number of grid-search candidates.
	CandidatesKey = "search.candidates"

	// FoldsKey records the number of cross-validation folds.
	FoldsKey = "search.folds"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// HTTP access log
const (
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"
	HTTPSizeKey   = "http.size"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationSearch    = "search"
	OperationClean     = "clean"
	OperationEvaluate  = "evaluate"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConfig            = "CONFIG"
	ErrorInternal          = "INTERNAL"
)
