// Package dataset loads the wide passenger-count table and turns each stop
// column into a time-ordered series with model features.
package dataset

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// FeatureNames lists the columns produced by Features, in order.
var FeatureNames = []string{"hour", "minute", "day", "day_of_week", "stop_id"}

// Table is the parsed wide CSV. Values[i][j] is the count of stop j at
// Timestamps[i]; missing observations are NaN.
type Table struct {
	Timestamps []time.Time
	Stops      []string
	Values     [][]float64
}

// Record is one observation of a stop.
type Record struct {
	Time  time.Time
	Count float64
}

// StopSeries holds the observations of one stop ordered by time.
type StopSeries struct {
	// ID is the zero-based position of the stop among the stop columns.
	ID      int
	Name    string
	Records []Record
}

// Len returns the number of records.
func (s StopSeries) Len() int {
	return len(s.Records)
}

// Partition splits the table into one series per stop column, in column
// order. Missing cells are dropped and records are stable-sorted by time.
// Stops without any observation yield an empty series.
func (t *Table) Partition() []StopSeries {
	return lo.Map(t.Stops, func(name string, j int) StopSeries {
		records := make([]Record, 0, len(t.Timestamps))
		for i, ts := range t.Timestamps {
			if v := t.Values[i][j]; !math.IsNaN(v) {
				records = append(records, Record{Time: ts, Count: v})
			}
		}
		slices.SortStableFunc(records, func(a, b Record) int {
			return a.Time.Compare(b.Time)
		})
		return StopSeries{ID: j, Name: name, Records: records}
	})
}

// Features builds the model inputs and targets of a series: hour, minute,
// whole days since the series' first timestamp, day of week (Monday = 0) and
// the stop id. An empty series returns nil matrices.
func Features(s StopSeries) (*mat.Dense, *mat.VecDense) {
	n := len(s.Records)
	if n == 0 {
		return nil, nil
	}

	first := lo.MinBy(s.Records, func(a, b Record) bool {
		return a.Time.Before(b.Time)
	}).Time

	X := mat.NewDense(n, len(FeatureNames), nil)
	y := mat.NewVecDense(n, nil)
	for i, r := range s.Records {
		X.SetRow(i, []float64{
			float64(r.Time.Hour()),
			float64(r.Time.Minute()),
			math.Floor(r.Time.Sub(first).Hours() / 24),
			float64((int(r.Time.Weekday()) + 6) % 7),
			float64(s.ID),
		})
		y.SetVec(i, r.Count)
	}
	return X, y
}
