package report

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/stopcast/internal/pipeline"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// WriteSummary prints one table row per stop followed by an overall row
// whose MAE is weighted by the number of predictions.
func WriteSummary(w io.Writer, results []*pipeline.StopResult) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Stop", "Name", "Samples", "MAE", "Rounded MAE", "Rounded RMSE", "Drifts", "Time"})

	for _, r := range results {
		if err := table.Append([]string{
			strconv.Itoa(r.StopID),
			r.StopName,
			strconv.Itoa(r.Len()),
			strconv.FormatFloat(r.MAE, 'f', 4, 64),
			strconv.FormatFloat(r.RoundedMAE, 'f', 4, 64),
			strconv.FormatFloat(r.RoundedRMSE, 'f', 4, 64),
			strconv.Itoa(r.Drifts),
			r.Duration.Round(time.Millisecond).String(),
		}); err != nil {
			return errors.Wrap(err, "summary row")
		}
	}

	total, mae, rounded := Overall(results)
	if err := table.Append([]string{
		"all", "",
		strconv.Itoa(total),
		strconv.FormatFloat(mae, 'f', 4, 64),
		strconv.FormatFloat(rounded, 'f', 4, 64),
		"",
		strconv.Itoa(lo.SumBy(results, func(r *pipeline.StopResult) int { return r.Drifts })),
		"",
	}); err != nil {
		return errors.Wrap(err, "summary row")
	}
	return errors.Wrap(table.Render(), "render summary")
}

// Overall returns the total number of predictions and the sample-weighted
// MAE of the raw and rounded predictions.
func Overall(results []*pipeline.StopResult) (total int, mae, roundedMAE float64) {
	for _, r := range results {
		n := r.Len()
		total += n
		mae += r.MAE * float64(n)
		roundedMAE += r.RoundedMAE * float64(n)
	}
	if total == 0 {
		return 0, 0, 0
	}
	return total, mae / float64(total), roundedMAE / float64(total)
}
