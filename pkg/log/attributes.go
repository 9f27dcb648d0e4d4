// Package log defines standard attribute keys for stopcast logging.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so JSON logs can be filtered per stop, per model and per
// pipeline phase.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "AdaptiveRandomForestRegressor", "HoeffdingTreeRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "partial_fit", "prequential"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "dataset", "pipeline", "report"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// DataSizeKey indicates the size of downloaded or read data in bytes.
	DataSizeKey = "data.size_bytes"

	// SourceKey names where the dataset came from (path or URL).
	SourceKey = "data.source"
)

// Stop Context
const (
	// StopIDKey is the zero-based stop identifier.
	StopIDKey = "stop.id"

	// StopNameKey is the stop column header.
	StopNameKey = "stop.name"

	// StopsKey is the number of stops in a dataset.
	StopsKey = "stop.count"

	// OutputPathKey is the file a stop's predictions were written to.
	OutputPathKey = "output.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// DriftsKey records the number of drifts handled by an ensemble.
	DriftsKey = "metrics.drifts"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"
)

// Standard attribute values.
const (
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationPartialFit  = "partial_fit"
	OperationPrequential = "prequential"
	OperationLoad        = "load"
	OperationWrite       = "write"

	PhaseLoading   = "loading"
	PhaseTraining  = "training"
	PhaseReporting = "reporting"

	ErrorDataUnavailable = "DATA_UNAVAILABLE"
	ErrorWrite           = "WRITE_ERROR"
	ErrorInvalidInput    = "INVALID_INPUT"
)
