// Package stopcast predicts passenger counts per bus stop with online
// learners, designed to run as a batch job over a wide timestamp-by-stop CSV.
//
// Every stop gets its own adaptive random forest of Hoeffding trees. Records
// are processed in time order, each one predicted before it is learned, and
// the rounded predictions are written to predictions_stop_<id>.csv.
//
// # Quick Start
//
// Run the command with a local dataset:
//
//	BUS_DATASET_PATH=bus_counts.csv BUS_OUTPUT_DIR=out go run ./cmd/stopcast
//
// Without BUS_DATASET_PATH (or when the file does not exist) the dataset is
// downloaded from BUS_DATASET_URL. A config file can be passed with
// --config; see internal/config for the keys.
//
// The learners can also be used directly:
//
//	forest := ensemble.NewAdaptiveRandomForestRegressor(
//	    ensemble.WithNModels(10),
//	    ensemble.WithRandomState(42),
//	)
//	res, err := evaluation.Prequential(ctx, forest, X, y)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("MAE:", res.Metrics.MAE())
//
// # Packages
//
//   - sklearn/tree: Hoeffding tree regressor with mean, linear and adaptive leaves
//   - sklearn/ensemble: adaptive random forest regressor
//   - sklearn/drift: ADWIN, Page-Hinkley and DDM drift detectors
//   - sklearn/linear_model: online SGD regressor used by tree leaves
//   - evaluation: prequential (test-then-train) evaluation
//   - metrics: batch and running regression metrics (MAE, RMSE, R²)
//   - preprocessing: online standard scaler
//   - core/model: learner interfaces and fit state
//   - core/parallel: row-parallel helpers
//   - internal/dataset, internal/pipeline, internal/report: the stopcast job
//
// # Error Handling
//
// Errors are built on cockroachdb/errors and carry stack traces. Missing
// datasets surface as DataUnavailableError and unwritable outputs as
// WriteError; both end the run with exit code 1.
package stopcast
