package main

import (
	"context"
	"fmt"
	"io"

	"github.com/YuminosukeSato/stopcast/internal/config"
	"github.com/YuminosukeSato/stopcast/internal/dataset"
	"github.com/YuminosukeSato/stopcast/internal/pipeline"
	"github.com/YuminosukeSato/stopcast/internal/report"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/pkg/log"
)

// run loads the dataset, processes every stop and prints the per-stop MAE
// and the summary table to stdout.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := log.GetLogger()

	loader := dataset.NewLoader(cfg.Dataset.Path, cfg.Dataset.URL,
		dataset.WithTimeout(cfg.Dataset.Timeout),
		dataset.WithQuiet(cfg.Dataset.Quiet),
		dataset.WithLogger(logger),
	)
	table, err := loader.Load(ctx)
	if err != nil {
		var unavailable *errors.DataUnavailableError
		if errors.As(err, &unavailable) {
			logger.Error("dataset unavailable", err, log.ErrorCodeKey, log.ErrorDataUnavailable)
		}
		return err
	}

	sinks := []pipeline.Sink{report.NewCSVWriter(cfg.Output.Dir)}
	if cfg.Output.PlotDir != "" {
		sinks = append(sinks, report.NewPlotWriter(cfg.Output.PlotDir))
	}
	runner := pipeline.NewRunner(cfg.Model,
		pipeline.WithSinks(sinks...),
		pipeline.WithLogger(logger),
	)

	results, runErr := runner.Run(ctx, table)
	for _, r := range results {
		fmt.Fprintf(stdout, "MAE for stop %s: %.4f\n", r.StopName, r.MAE)
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Output.Summary {
		logger.Info("writing summary", log.PhaseKey, log.PhaseReporting, log.StopsKey, len(results))
		if err := report.WriteSummary(stdout, results); err != nil {
			return err
		}
	}
	return nil
}
