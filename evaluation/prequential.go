// Package evaluation provides streaming evaluation of online learners.
package evaluation

import (
	"context"

	"github.com/YuminosukeSato/stopcast/core/model"
	"github.com/YuminosukeSato/stopcast/metrics"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Result holds the outcome of a prequential run.
type Result struct {
	// Predictions are the raw predictions, made before each record was learned.
	Predictions []float64
	// Truth holds the target of every evaluated record.
	Truth []float64
	// Metrics accumulates over Predictions and Truth.
	Metrics *metrics.Running
}

// Len returns the number of evaluated records.
func (r *Result) Len() int {
	return len(r.Predictions)
}

type config struct {
	maxInstances int
	onStep       func(i int, yTrue, yPred float64)
}

// Option configures Prequential.
type Option func(*config)

// WithMaxInstances stops after n records. 0 means no limit.
func WithMaxInstances(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxInstances = n
		}
	}
}

// WithOnStep registers a callback invoked after each record is learned.
func WithOnStep(fn func(i int, yTrue, yPred float64)) Option {
	return func(c *config) {
		c.onStep = fn
	}
}

// Prequential runs test-then-train over the rows of X: each record is first
// predicted and then learned. The context is checked between records; on
// cancellation the partial result is returned along with the context error.
func Prequential(ctx context.Context, learner model.OnlineRegressor, X mat.Matrix, y mat.Vector, opts ...Option) (*Result, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	rows, cols := X.Dims()
	if y.Len() != rows {
		return nil, errors.NewDimensionError("Prequential", rows, y.Len(), 0)
	}
	n := rows
	if cfg.maxInstances > 0 && cfg.maxInstances < n {
		n = cfg.maxInstances
	}

	res := &Result{
		Predictions: make([]float64, 0, n),
		Truth:       make([]float64, 0, n),
		Metrics:     metrics.NewRunning(),
	}
	x := make([]float64, cols)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrapf(err, "prequential evaluation stopped after %d of %d records", i, n)
		}

		mat.Row(x, i, X)
		yi := y.AtVec(i)

		pred, err := learner.PredictOne(x)
		if err != nil {
			return res, errors.Wrapf(err, "predict record %d", i)
		}
		if err := learner.LearnOne(x, yi, 1); err != nil {
			return res, errors.Wrapf(err, "learn record %d", i)
		}

		res.Predictions = append(res.Predictions, pred)
		res.Truth = append(res.Truth, yi)
		res.Metrics.Update(yi, pred, 1)
		if cfg.onStep != nil {
			cfg.onStep(i, yi, pred)
		}
	}
	return res, nil
}
