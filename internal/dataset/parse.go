package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// missingTokens mark an absent observation (compared case-insensitively).
var missingTokens = []string{"", "nan", "na", "n/a", "null", "none"}

// Parse reads the wide CSV layout: the first column holds timestamps (its
// header may be empty) and every further column is one stop. Timestamps are
// interpreted in UTC. Structural problems are reported as ValidationError.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewValidationError("header", "dataset is empty", nil)
	}
	if err != nil {
		return nil, csvError(err)
	}
	if len(header) < 2 {
		return nil, errors.NewValidationError("header", "no stop columns", header)
	}

	t := &Table{
		Stops: lo.Map(header[1:], func(h string, _ int) string {
			return strings.TrimSpace(h)
		}),
	}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		ts, err := dateparse.ParseIn(strings.TrimSpace(row[0]), time.UTC)
		if err != nil {
			return nil, errors.NewValidationError("timestamp", "line "+strconv.Itoa(line)+": unparsable timestamp", row[0])
		}
		values := make([]float64, len(t.Stops))
		for j, cell := range row[1:] {
			v, err := parseCount(cell)
			if err != nil {
				return nil, errors.NewValidationError(t.Stops[j], "line "+strconv.Itoa(line)+": unparsable count", cell)
			}
			values[j] = v
		}
		t.Timestamps = append(t.Timestamps, ts)
		t.Values = append(t.Values, values)
	}
	return t, nil
}

func parseCount(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if lo.Contains(missingTokens, strings.ToLower(cell)) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, errors.Newf("infinite count %q", cell)
	}
	return v, nil
}

// csvError converts encoding/csv failures (ragged rows, bad quoting) into
// validation errors.
func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return errors.NewValidationError("csv", "line "+strconv.Itoa(pe.Line)+": "+pe.Err.Error(), nil)
	}
	return errors.Wrap(err, "read dataset")
}
