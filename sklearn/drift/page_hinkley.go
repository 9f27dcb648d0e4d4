package drift

import (
	"math"
	"sync"
)

// PageHinkley はPage-Hinkley検定による平均の増加を検出する
// E. S. Page (1954) "Continuous Inspection Schemes"
type PageHinkley struct {
	minInstances int     // 検出を始める最小サンプル数
	delta        float64 // 許容する変化量
	threshold    float64 // 検出閾値（λ）
	alpha        float64 // 累積和の忘却係数

	n      int
	mean   float64
	sum    float64
	minSum float64

	detected bool
	nDrifts  int

	mu sync.RWMutex
}

// PageHinkleyOption はPageHinkleyの設定オプション
type PageHinkleyOption func(*PageHinkley)

// NewPageHinkley は新しいPageHinkleyを作成
func NewPageHinkley(options ...PageHinkleyOption) *PageHinkley {
	ph := &PageHinkley{
		minInstances: 30,
		delta:        0.005,
		threshold:    50,
		alpha:        1 - 0.0001,
	}
	for _, opt := range options {
		opt(ph)
	}
	ph.resetState()
	return ph
}

// WithPHMinInstances は最小サンプル数を設定
func WithPHMinInstances(n int) PageHinkleyOption {
	return func(ph *PageHinkley) {
		ph.minInstances = n
	}
}

// WithPHDelta は許容変化量を設定
func WithPHDelta(delta float64) PageHinkleyOption {
	return func(ph *PageHinkley) {
		ph.delta = delta
	}
}

// WithPHThreshold は検出閾値を設定
func WithPHThreshold(threshold float64) PageHinkleyOption {
	return func(ph *PageHinkley) {
		ph.threshold = threshold
	}
}

// WithPHAlpha は忘却係数を設定
func WithPHAlpha(alpha float64) PageHinkleyOption {
	return func(ph *PageHinkley) {
		ph.alpha = alpha
	}
}

// Update は新しい値で検定統計量を更新する。検出後は統計量をリセットする。
func (ph *PageHinkley) Update(value float64) bool {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.n++
	ph.mean += (value - ph.mean) / float64(ph.n)
	ph.sum = ph.alpha*ph.sum + (value - ph.mean - ph.delta)
	ph.minSum = math.Min(ph.minSum, ph.sum)

	ph.detected = false
	if ph.n < ph.minInstances {
		return false
	}
	if ph.sum-ph.minSum > ph.threshold {
		ph.nDrifts++
		ph.resetState()
		ph.detected = true
	}
	return ph.detected
}

// Detected は直前の Update でドリフトを検出したかを返す
func (ph *PageHinkley) Detected() bool {
	ph.mu.RLock()
	defer ph.mu.RUnlock()
	return ph.detected
}

// Estimation は検定統計量（累積和と最小値の差）を返す
func (ph *PageHinkley) Estimation() float64 {
	ph.mu.RLock()
	defer ph.mu.RUnlock()
	if ph.n == 0 {
		return 0
	}
	return ph.sum - ph.minSum
}

// Threshold は検出閾値を返す
func (ph *PageHinkley) Threshold() float64 {
	return ph.threshold
}

// Name returns "PageHinkley".
func (ph *PageHinkley) Name() string {
	return "PageHinkley"
}

// NDrifts は検出したドリフトの回数を返す
func (ph *PageHinkley) NDrifts() int {
	ph.mu.RLock()
	defer ph.mu.RUnlock()
	return ph.nDrifts
}

// Reset は検出器をリセット
func (ph *PageHinkley) Reset() {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	ph.resetState()
	ph.detected = false
}

func (ph *PageHinkley) resetState() {
	ph.n = 0
	ph.mean = 0
	ph.sum = 0
	ph.minSum = math.Inf(1)
}
