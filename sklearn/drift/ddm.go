package drift

import (
	"math"
	"sync"
)

// DDM (Drift Detection Method) is a concept drift detection method
// Proposed in J. Gama, P. Medas, G. Castillo, P. Rodrigues (2004)
// "Learning with Drift Detection"
//
// DDM monitors a binary error signal. For regression, Update treats a value
// at or above the error threshold as a mistake.
type DDM struct {
	// Hyperparameters
	minNumInstances int     // Minimum number of instances
	warningLevel    float64 // Warning level
	outControlLevel float64 // Out of control level
	errorThreshold  float64 // Values >= this count as errors in Update

	// Statistics
	numInstances int     // Number of instances
	numErrors    int     // Number of errors
	errorRate    float64 // Error rate
	stdDev       float64 // Standard deviation

	// Reference values (minimum values from learning start)
	minErrorRate float64 // Minimum error rate
	minStdDev    float64 // Minimum standard deviation

	// State
	warningDetected bool // Warning detection flag
	driftDetected   bool // Drift detection flag
	nDrifts         int

	// Internal state
	mu sync.RWMutex
}

// DriftDetectionResult represents the result of drift detection
type DriftDetectionResult struct {
	WarningDetected bool    // Whether warning was detected
	DriftDetected   bool    // Whether drift was detected
	ErrorRate       float64 // Current error rate
	ConfidenceLevel float64 // Confidence level
}

// NewDDM creates a new DDM instance
func NewDDM(options ...DDMOption) *DDM {
	ddm := &DDM{
		minNumInstances: 30,
		warningLevel:    2.0, // μ + 2σ
		outControlLevel: 3.0, // μ + 3σ
		errorThreshold:  1.0,
		minErrorRate:    math.Inf(1),
		minStdDev:       math.Inf(1),
	}

	for _, opt := range options {
		opt(ddm)
	}

	return ddm
}

// DDMOption is a DDM configuration option
type DDMOption func(*DDM)

// WithDDMMinNumInstances sets the minimum number of samples
func WithDDMMinNumInstances(n int) DDMOption {
	return func(ddm *DDM) {
		ddm.minNumInstances = n
	}
}

// WithDDMWarningLevel sets the warning level
func WithDDMWarningLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.warningLevel = level
	}
}

// WithDDMOutControlLevel sets the out-of-control level
func WithDDMOutControlLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.outControlLevel = level
	}
}

// WithDDMErrorThreshold sets the value from which Update counts an error.
func WithDDMErrorThreshold(threshold float64) DDMOption {
	return func(ddm *DDM) {
		ddm.errorThreshold = threshold
	}
}

// Update feeds an error magnitude (e.g. |y - ŷ|) and reports drift.
func (ddm *DDM) Update(value float64) bool {
	return ddm.UpdateCorrect(value < ddm.errorThreshold).DriftDetected
}

// UpdateCorrect updates the drift detector with prediction results
// correct: whether the prediction was correct
// return: drift detection result
func (ddm *DDM) UpdateCorrect(correct bool) *DriftDetectionResult {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()

	ddm.driftDetected = false
	ddm.numInstances++
	if !correct {
		ddm.numErrors++
	}

	// Do not detect if minimum sample size is not reached
	if ddm.numInstances < ddm.minNumInstances {
		return &DriftDetectionResult{}
	}

	// Calculate error rate and standard deviation
	ddm.errorRate = float64(ddm.numErrors) / float64(ddm.numInstances)
	ddm.stdDev = math.Sqrt(ddm.errorRate * (1.0 - ddm.errorRate) / float64(ddm.numInstances))

	result := &DriftDetectionResult{
		ErrorRate: ddm.errorRate,
	}

	// 基準値の更新（最小エラー率とその時の標準偏差）
	currentLevel := ddm.errorRate + ddm.stdDev
	if currentLevel < (ddm.minErrorRate + ddm.minStdDev) {
		ddm.minErrorRate = ddm.errorRate
		ddm.minStdDev = ddm.stdDev
	}

	// 信頼度の計算
	if ddm.minStdDev > 0 {
		result.ConfidenceLevel = currentLevel / (ddm.minErrorRate + ddm.minStdDev)
	} else {
		result.ConfidenceLevel = 1.0
	}

	// 警告レベルの検出
	warningThreshold := ddm.minErrorRate + ddm.warningLevel*ddm.minStdDev
	ddm.warningDetected = currentLevel > warningThreshold
	result.WarningDetected = ddm.warningDetected

	// ドリフトレベルの検出
	driftThreshold := ddm.minErrorRate + ddm.outControlLevel*ddm.minStdDev
	if currentLevel > driftThreshold {
		result.DriftDetected = true
		ddm.nDrifts++
		// ドリフト検出時はリセット
		ddm.resetStats()
		ddm.driftDetected = true
	}

	return result
}

// Detected reports whether the last update signalled drift.
func (ddm *DDM) Detected() bool {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.driftDetected
}

// WarningDetected reports whether the last update crossed the warning level.
func (ddm *DDM) WarningDetected() bool {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.warningDetected
}

// Estimation returns the current error rate.
func (ddm *DDM) Estimation() float64 {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.errorRate
}

// Threshold returns the out-of-control level in standard deviations.
func (ddm *DDM) Threshold() float64 {
	return ddm.outControlLevel
}

// Name returns "DDM".
func (ddm *DDM) Name() string {
	return "DDM"
}

// Reset はドリフト検出器をリセット
func (ddm *DDM) Reset() {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()
	ddm.resetStats()
	ddm.driftDetected = false
}

func (ddm *DDM) resetStats() {
	ddm.numInstances = 0
	ddm.numErrors = 0
	ddm.errorRate = 0
	ddm.stdDev = 0
	ddm.minErrorRate = math.Inf(1)
	ddm.minStdDev = math.Inf(1)
	ddm.warningDetected = false
}

// GetStatistics は現在の統計情報を返す
func (ddm *DDM) GetStatistics() DDMStatistics {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()

	return DDMStatistics{
		NumInstances:    ddm.numInstances,
		NumErrors:       ddm.numErrors,
		ErrorRate:       ddm.errorRate,
		StdDev:          ddm.stdDev,
		MinErrorRate:    ddm.minErrorRate,
		MinStdDev:       ddm.minStdDev,
		WarningDetected: ddm.warningDetected,
		DriftDetected:   ddm.driftDetected,
		NumDrifts:       ddm.nDrifts,
	}
}

// DDMStatistics はDDMの統計情報
type DDMStatistics struct {
	NumInstances    int     // サンプル数
	NumErrors       int     // エラー数
	ErrorRate       float64 // エラー率
	StdDev          float64 // 標準偏差
	MinErrorRate    float64 // 最小エラー率
	MinStdDev       float64 // 最小標準偏差
	WarningDetected bool    // 警告検出フラグ
	DriftDetected   bool    // ドリフト検出フラグ
	NumDrifts       int     // 検出したドリフト数
}

var (
	_ Detector = (*DDM)(nil)
	_ Detector = (*ADWIN)(nil)
	_ Detector = (*PageHinkley)(nil)
)
