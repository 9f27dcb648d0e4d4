// Package report writes per-stop prediction files, optional plots and the
// end-of-run summary.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/stopcast/internal/pipeline"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// TimeLayout is the time-of-day format of the timestamp column.
const TimeLayout = "15:04:05"

// Header is the first row of every predictions file.
var Header = []string{"timestamp", "actual", "predicted", "error"}

// FileName returns the predictions file name of a stop.
func FileName(stopID int) string {
	return fmt.Sprintf("predictions_stop_%d.csv", stopID)
}

// CSVWriter writes one predictions file per stop into Dir.
type CSVWriter struct {
	Dir string
}

func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir}
}

// Write implements pipeline.Sink. The directory is created when missing and
// an existing file is replaced. Stops without predictions get a header-only
// file.
func (w *CSVWriter) Write(res *pipeline.StopResult) (path string, err error) {
	path = filepath.Join(w.Dir, FileName(res.StopID))
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return path, errors.NewWriteError(path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return path, errors.NewWriteError(path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewWriteError(path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(Header); err != nil {
		return path, errors.NewWriteError(path, err)
	}
	for _, p := range res.Predictions {
		if err := cw.Write(Row(p)); err != nil {
			return path, errors.NewWriteError(path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return path, errors.NewWriteError(path, err)
	}
	return path, nil
}

// Row formats one prediction. The predicted column is always an integer.
func Row(p pipeline.Prediction) []string {
	return []string{
		p.Time.Format(TimeLayout),
		formatFloat(p.Actual),
		strconv.FormatInt(p.Predicted, 10),
		formatFloat(p.Error),
	}
}

// formatFloat は整数値でも小数点を残す（12 -> "12.0"）
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}
