package metrics

import (
	"math"
	"sync"
)

// Running accumulates regression metrics one prediction at a time, the way a
// prequential evaluation reports its cumulative score.
type Running struct {
	mu sync.RWMutex

	weight float64
	absErr float64
	sqErr  float64
	yMean  float64
	yM2    float64 // Σw(y-mean)² (West's weighted Welford)
}

// NewRunning creates an empty running metric set.
func NewRunning() *Running {
	return &Running{}
}

// Update adds one (truth, prediction) pair with the given sample weight.
// Non-positive weights are ignored.
func (r *Running) Update(yTrue, yPred, weight float64) {
	if weight <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	diff := yTrue - yPred
	r.absErr += weight * math.Abs(diff)
	r.sqErr += weight * diff * diff

	r.weight += weight
	delta := yTrue - r.yMean
	r.yMean += weight / r.weight * delta
	r.yM2 += weight * delta * (yTrue - r.yMean)
}

// Count returns the accumulated sample weight.
func (r *Running) Count() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weight
}

// MAE returns the cumulative mean absolute error, 0 before any update.
func (r *Running) MAE() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.weight == 0 {
		return 0
	}
	return r.absErr / r.weight
}

// MSE returns the cumulative mean squared error, 0 before any update.
func (r *Running) MSE() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.weight == 0 {
		return 0
	}
	return r.sqErr / r.weight
}

// RMSE returns the cumulative root mean squared error.
func (r *Running) RMSE() float64 {
	return math.Sqrt(r.MSE())
}

// R2 returns the cumulative coefficient of determination. It is 0 while the
// targets seen so far have no variance.
func (r *Running) R2() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.yM2 == 0 {
		return 0
	}
	return 1 - r.sqErr/r.yM2
}
