package tree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// stepData returns integer x in [0, 10) with y = 0 for x < 5 and y = 10 otherwise
func stepData(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(rng.IntN(10))
		X.Set(i, 0, x)
		if x >= 5 {
			y.Set(i, 0, 10)
		}
	}
	return X, y
}

// TestHoeffdingTreeRegressor_SplitsOnStep tests that a mean-leaf tree finds
// the single step and stops splitting pure leaves
func TestHoeffdingTreeRegressor_SplitsOnStep(t *testing.T) {
	X, y := stepData(2000, 3)

	ht := NewHoeffdingTreeRegressor(
		WithLeafPrediction(LeafMean),
		WithGracePeriod(200),
	)
	if err := ht.PartialFit(X, y, nil); err != nil {
		t.Fatalf("PartialFit() error = %v", err)
	}

	if got := ht.NLeaves(); got != 2 {
		t.Errorf("NLeaves() = %d, want 2", got)
	}
	if got := ht.NNodes(); got != 3 {
		t.Errorf("NNodes() = %d, want 3", got)
	}
	if got := ht.Depth(); got != 1 {
		t.Errorf("Depth() = %d, want 1", got)
	}

	tests := []struct {
		x, want float64
	}{
		{1, 0},
		{4, 0},
		{6, 10},
		{9.5, 10},
	}
	for _, tt := range tests {
		got, err := ht.PredictOne([]float64{tt.x})
		if err != nil {
			t.Fatalf("PredictOne(%v) error = %v", tt.x, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PredictOne(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

// TestHoeffdingTreeRegressor_LinearLeaves tests model leaves on a linear target
func TestHoeffdingTreeRegressor_LinearLeaves(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	n := 3000
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x1, x2 := rng.Float64()*10, rng.Float64()*10
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.Set(i, 0, 2*x1+x2+1)
	}

	for _, kind := range []string{LeafModel, LeafAdaptive} {
		t.Run(kind, func(t *testing.T) {
			ht := NewHoeffdingTreeRegressor(WithLeafPrediction(kind))
			if err := ht.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			score, err := ht.Score(X, y)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if score < 0.8 {
				t.Errorf("R² = %v, want >= 0.8", score)
			}
		})
	}
}

func TestHoeffdingTreeRegressor_MaxDepth(t *testing.T) {
	X, y := stepData(2000, 5)
	// add a slope so every leaf keeps finding variance to reduce
	for i := 0; i < 2000; i++ {
		y.Set(i, 0, y.At(i, 0)+X.At(i, 0))
	}

	ht := NewHoeffdingTreeRegressor(WithLeafPrediction(LeafMean), WithMaxDepth(1))
	if err := ht.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if ht.Depth() > 1 {
		t.Errorf("Depth() = %d, want <= 1", ht.Depth())
	}
}

func TestHoeffdingTreeRegressor_Unfitted(t *testing.T) {
	ht := NewHoeffdingTreeRegressor()

	p, err := ht.PredictOne([]float64{1, 2})
	if err != nil || p != 0 {
		t.Errorf("PredictOne() = %v, %v; want 0, nil", p, err)
	}

	_, err = ht.Predict(mat.NewDense(1, 2, nil))
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("Predict() error = %v, want NotFittedError", err)
	}
	if ht.NNodes() != 0 || ht.Depth() != 0 {
		t.Errorf("empty tree has %d nodes, depth %d", ht.NNodes(), ht.Depth())
	}
}

func TestHoeffdingTreeRegressor_DimensionMismatch(t *testing.T) {
	ht := NewHoeffdingTreeRegressor()
	if err := ht.LearnOne([]float64{1, 2}, 3, 1); err != nil {
		t.Fatal(err)
	}

	err := ht.LearnOne([]float64{1}, 3, 1)
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Fatalf("LearnOne() error = %v, want DimensionError", err)
	}
	if de.Expected != 2 || de.Got != 1 {
		t.Errorf("DimensionError = %+v", de)
	}

	if _, err := ht.PredictOne([]float64{1, 2, 3}); err == nil {
		t.Error("PredictOne() with wrong width should fail")
	}
}

func TestHoeffdingTreeRegressor_FeatureSubspace(t *testing.T) {
	ht := NewHoeffdingTreeRegressor(WithMaxFeatures(1), WithRandomState(7))
	for i := 0; i < 50; i++ {
		x := []float64{float64(i), float64(i % 3), 1}
		if err := ht.LearnOne(x, float64(i), 1); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(ht.root.leaf.features); got != 1 {
		t.Errorf("root leaf watches %d features, want 1", got)
	}
}

func TestHoeffdingBound(t *testing.T) {
	got := hoeffdingBound(1, 1e-7, 200)
	want := math.Sqrt(math.Log(1e7) / 400)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("hoeffdingBound() = %v, want %v", got, want)
	}
	if hoeffdingBound(1, 1e-7, 2000) >= got {
		t.Error("bound should shrink as n grows")
	}
}
