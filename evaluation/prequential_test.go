package evaluation

import (
	"context"
	"math"
	"testing"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// lastValue predicts the previous target it learned
type lastValue struct {
	last    float64
	learned int
}

func (l *lastValue) LearnOne(_ []float64, y, _ float64) error {
	l.last = y
	l.learned++
	return nil
}

func (l *lastValue) PredictOne(_ []float64) (float64, error) {
	return l.last, nil
}

func TestPrequentialPredictsBeforeLearning(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{5, 7, 7, 10})

	l := &lastValue{}
	res, err := Prequential(context.Background(), l, X, y)
	if err != nil {
		t.Fatalf("Prequential() error = %v", err)
	}

	want := []float64{0, 5, 7, 7}
	for i, p := range res.Predictions {
		if p != want[i] {
			t.Errorf("prediction %d = %v, want %v", i, p, want[i])
		}
	}
	if res.Len() != 4 || l.learned != 4 {
		t.Errorf("Len()=%d learned=%d, want 4", res.Len(), l.learned)
	}
	// |5-0| + |7-5| + 0 + |10-7|
	if got := res.Metrics.MAE(); math.Abs(got-10.0/4) > 1e-12 {
		t.Errorf("MAE = %v, want 2.5", got)
	}
}

func TestPrequentialOptions(t *testing.T) {
	X := mat.NewDense(5, 1, nil)
	y := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})

	var steps []int
	res, err := Prequential(context.Background(), &lastValue{}, X, y,
		WithMaxInstances(3),
		WithOnStep(func(i int, _, _ float64) { steps = append(steps, i) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 3 || len(steps) != 3 || steps[2] != 2 {
		t.Errorf("Len()=%d steps=%v", res.Len(), steps)
	}
}

func TestPrequentialCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	X := mat.NewDense(3, 1, nil)
	y := mat.NewVecDense(3, nil)
	res, err := Prequential(ctx, &lastValue{}, X, y)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if res.Len() != 0 {
		t.Errorf("Len() = %d, want 0", res.Len())
	}
}

func TestPrequentialDimensionMismatch(t *testing.T) {
	_, err := Prequential(context.Background(), &lastValue{}, mat.NewDense(3, 1, nil), mat.NewVecDense(2, nil))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("error = %v, want DimensionError", err)
	}
}

func TestPrequentialWithTree(t *testing.T) {
	n := 1000
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := float64(i % 10)
		X.Set(i, 0, v)
		if v >= 5 {
			y.SetVec(i, 10)
		}
	}

	res, err := Prequential(context.Background(), tree.NewHoeffdingTreeRegressor(tree.WithLeafPrediction(tree.LeafMean)), X, y)
	if err != nil {
		t.Fatal(err)
	}
	// the running mean errs by about 5 until the split at 200 records;
	// every later prediction is exact
	if res.Metrics.MAE() > 1.5 {
		t.Errorf("prequential MAE = %v", res.Metrics.MAE())
	}
}
