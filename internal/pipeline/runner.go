package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/YuminosukeSato/stopcast/internal/config"
	"github.com/YuminosukeSato/stopcast/internal/dataset"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/pkg/log"
)

// Sink receives the result of every stop. Write returns the path it wrote
// to, or "" when it produced nothing for the stop. A panicking sink fails
// the run like a write error.
type Sink interface {
	Write(res *StopResult) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(res *StopResult) (string, error)

func (f SinkFunc) Write(res *StopResult) (string, error) {
	return f(res)
}

// Runner processes the stops of a table one after another.
type Runner struct {
	model  config.ModelConfig
	sinks  []Sink
	logger log.Logger
}

type RunnerOption func(*Runner)

// WithSinks appends result sinks. They are called in order for each stop.
func WithSinks(sinks ...Sink) RunnerOption {
	return func(r *Runner) {
		r.sinks = append(r.sinks, sinks...)
	}
}

func WithLogger(logger log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(model config.ModelConfig, opts ...RunnerOption) *Runner {
	r := &Runner{model: model}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	r.logger = r.logger.With(log.ComponentKey, "pipeline")
	return r
}

// Run trains and predicts every stop of t in column order and passes each
// result to the sinks. It stops at the first failing stop or sink; results
// of stops finished before that point are returned alongside the error.
func (r *Runner) Run(ctx context.Context, t *dataset.Table) ([]*StopResult, error) {
	series := t.Partition()
	results := make([]*StopResult, 0, len(series))
	start := time.Now()

	r.logger.Info("training started",
		log.PhaseKey, log.PhaseTraining,
		log.StopsKey, len(series),
		log.SamplesKey, len(t.Timestamps),
		log.RandomSeedKey, r.model.Seed,
	)

	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(err, "run interrupted")
		}

		res, err := PredictStop(ctx, s, r.model)
		if err != nil {
			if ctx.Err() != nil {
				return results, errors.Wrap(err, "run interrupted")
			}
			r.logger.Error("stop failed", err,
				log.StopIDKey, s.ID,
				log.StopNameKey, s.Name,
			)
			return results, errors.NewModelError("Runner.Run", fmt.Sprintf("stop %d (%s)", s.ID, s.Name), err)
		}

		stopLogger := r.logger.With(log.StopIDKey, res.StopID, log.StopNameKey, res.StopName)
		for _, sink := range r.sinks {
			var path string
			err := errors.SafeExecute("Sink.Write", func() (err error) {
				path, err = sink.Write(res)
				return err
			})
			if err != nil {
				stopLogger.Error("write failed", err, log.ErrorCodeKey, log.ErrorWrite)
				return results, err
			}
			if path != "" {
				stopLogger.Debug("output written", log.OutputPathKey, path)
			}
		}
		results = append(results, res)

		stopLogger.Info("stop processed",
			log.SamplesKey, res.Len(),
			log.MAEKey, res.MAE,
			log.RMSEKey, res.RMSE,
			log.DriftsKey, res.Drifts,
			log.DurationMsKey, res.Duration.Milliseconds(),
		)
	}

	r.logger.Info("training finished",
		log.PhaseKey, log.PhaseTraining,
		log.StopsKey, len(results),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return results, nil
}
