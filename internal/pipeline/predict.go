// Package pipeline runs the per-stop prequential training and hands each
// stop's rounded predictions to the configured sinks.
package pipeline

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stopcast/evaluation"
	"github.com/YuminosukeSato/stopcast/internal/config"
	"github.com/YuminosukeSato/stopcast/internal/dataset"
	"github.com/YuminosukeSato/stopcast/metrics"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// Prediction is one output row of a stop.
type Prediction struct {
	Time      time.Time
	Actual    float64
	Raw       float64
	Predicted int64
	Error     float64
}

// StopResult is everything produced for one stop.
type StopResult struct {
	StopID      int
	StopName    string
	Predictions []Prediction

	// MAE is the cumulative prequential MAE of the raw predictions.
	MAE float64
	// RoundedMAE is the MAE of the rounded predictions written out.
	RoundedMAE  float64
	RMSE        float64
	RoundedRMSE float64
	Drifts      int
	Duration    time.Duration
}

// Len returns the number of predictions.
func (r *StopResult) Len() int {
	return len(r.Predictions)
}

// maxRounded bounds rounded predictions to the integers float64 represents
// exactly.
const maxRounded = 1 << 53

// Round rounds a prediction to the nearest integer, ties to even. Values
// beyond ±2^53 saturate and NaN maps to 0.
func Round(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	return int64(math.RoundToEven(errors.ClipValue(v, -maxRounded, maxRounded)))
}

// PredictStop trains a fresh forest on the series test-then-train and
// returns the rounded predictions. A series without records yields an empty
// result. Panics inside the model are returned as a PanicError.
func PredictStop(ctx context.Context, s dataset.StopSeries, cfg config.ModelConfig) (result *StopResult, err error) {
	defer errors.Recover(&err, "PredictStop")

	start := time.Now()
	result = &StopResult{StopID: s.ID, StopName: s.Name}

	X, y := dataset.Features(s)
	if X == nil {
		result.Duration = time.Since(start)
		return result, nil
	}

	forest, err := NewForest(cfg)
	if err != nil {
		return nil, err
	}
	res, err := evaluation.Prequential(ctx, forest, X, y, evaluation.WithMaxInstances(cfg.MaxInstances))
	if err != nil {
		return nil, err
	}

	n := res.Len()
	result.Predictions = make([]Prediction, n)
	rounded := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if err := errors.CheckScalar("PredictStop", res.Predictions[i], i); err != nil {
			return nil, err
		}
		p := Round(res.Predictions[i])
		actual := res.Truth[i]
		result.Predictions[i] = Prediction{
			Time:      s.Records[i].Time,
			Actual:    actual,
			Raw:       res.Predictions[i],
			Predicted: p,
			Error:     math.Abs(actual - float64(p)),
		}
		rounded.SetVec(i, float64(p))
	}

	result.MAE = res.Metrics.MAE()
	result.RMSE = res.Metrics.RMSE()
	truth := mat.NewVecDense(n, res.Truth)
	if result.RoundedMAE, err = metrics.MAE(truth, rounded); err != nil {
		return nil, err
	}
	if result.RoundedRMSE, err = metrics.RMSE(truth, rounded); err != nil {
		return nil, err
	}
	result.Drifts = forest.NDrifts()
	result.Duration = time.Since(start)
	return result, nil
}
