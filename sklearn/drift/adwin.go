package drift

import (
	"math"
	"sync"
)

// ADWIN (Adaptive Windowing) はアダプティブウィンドウによるドリフト検出
// A. Bifet, R. Gavalda (2007) "Learning from time-changing data with adaptive windowing"
//
// ウィンドウは指数ヒストグラムで保持する。レベル i のバケットは 2^i 個の要素を
// 要約し、各レベルは最大 maxBuckets 個のバケットを持つ。
type ADWIN struct {
	// ハイパーパラメータ
	delta      float64 // 信頼度パラメータ（小さいほど鈍感）
	clock      int     // 何回の更新ごとにカットを検査するか
	maxBuckets int     // レベルごとの最大バケット数
	minWindow  int     // 各サブウィンドウの最小長

	// データ構造
	levels   [][]bucket // levels[i] はサイズ 2^i のバケット（先頭が古い）
	total    float64    // ウィンドウ内の合計
	variance float64    // ウィンドウ内の偏差平方和
	width    int        // ウィンドウ幅
	tick     int

	detected bool
	nDrifts  int

	mu sync.RWMutex
}

// bucket はADWINで使用するバケット
type bucket struct {
	total    float64 // バケット内の合計
	variance float64 // バケット内の偏差平方和
}

// NewADWIN は新しいADWINを作成
func NewADWIN(options ...ADWINOption) *ADWIN {
	adwin := &ADWIN{
		delta:      0.002,
		clock:      32,
		maxBuckets: 5,
		minWindow:  5,
	}

	for _, opt := range options {
		opt(adwin)
	}

	return adwin
}

// ADWINOption はADWINの設定オプション
type ADWINOption func(*ADWIN)

// WithADWINDelta は信頼度パラメータを設定
func WithADWINDelta(delta float64) ADWINOption {
	return func(adwin *ADWIN) {
		adwin.delta = delta
	}
}

// WithADWINClock はカット検査の間隔を設定
func WithADWINClock(clock int) ADWINOption {
	return func(adwin *ADWIN) {
		if clock > 0 {
			adwin.clock = clock
		}
	}
}

// WithADWINMaxBuckets はレベルごとの最大バケット数を設定
func WithADWINMaxBuckets(max int) ADWINOption {
	return func(adwin *ADWIN) {
		if max > 1 {
			adwin.maxBuckets = max
		}
	}
}

// WithADWINMinWindow はサブウィンドウの最小長を設定
func WithADWINMinWindow(n int) ADWINOption {
	return func(adwin *ADWIN) {
		if n > 0 {
			adwin.minWindow = n
		}
	}
}

// Update は新しい値でADWINを更新
func (adwin *ADWIN) Update(value float64) bool {
	adwin.mu.Lock()
	defer adwin.mu.Unlock()

	adwin.insert(value)
	adwin.detected = adwin.detectChange()
	if adwin.detected {
		adwin.nDrifts++
	}
	return adwin.detected
}

// insert は新しい要素をレベル0に追加し、溢れたレベルを圧縮する
func (adwin *ADWIN) insert(value float64) {
	if len(adwin.levels) == 0 {
		adwin.levels = append(adwin.levels, nil)
	}
	adwin.levels[0] = append(adwin.levels[0], bucket{total: value})

	adwin.width++
	if adwin.width > 1 {
		mean := adwin.total / float64(adwin.width-1)
		d := value - mean
		adwin.variance += float64(adwin.width-1) * d * d / float64(adwin.width)
	}
	adwin.total += value

	adwin.compress()
}

// compress はバケット数が上限を超えたレベルの古い2つを上位レベルへ統合する
func (adwin *ADWIN) compress() {
	for i := 0; i < len(adwin.levels); i++ {
		if len(adwin.levels[i]) <= adwin.maxBuckets {
			break
		}
		if i+1 == len(adwin.levels) {
			adwin.levels = append(adwin.levels, nil)
		}
		b1, b2 := adwin.levels[i][0], adwin.levels[i][1]
		n := float64(bucketSize(i))
		u1, u2 := b1.total/n, b2.total/n
		incVar := n * n * (u1 - u2) * (u1 - u2) / (2 * n)

		adwin.levels[i+1] = append(adwin.levels[i+1], bucket{
			total:    b1.total + b2.total,
			variance: b1.variance + b2.variance + incVar,
		})
		adwin.levels[i] = adwin.levels[i][2:]
	}
}

// detectChange はすべての分割点でHoeffding境界を検査し、
// 有意な差がある限り最も古いバケットを削除する
func (adwin *ADWIN) detectChange() bool {
	adwin.tick++
	if adwin.tick%adwin.clock != 0 || adwin.width <= adwin.minWindow {
		return false
	}

	changed := false
	for reduce := true; reduce; {
		reduce = false
		n0, n1 := 0, adwin.width
		u0, u1 := 0.0, adwin.total

	scan:
		for i := len(adwin.levels) - 1; i >= 0; i-- {
			size := bucketSize(i)
			for _, b := range adwin.levels[i] {
				n0 += size
				n1 -= size
				u0 += b.total
				u1 -= b.total

				if n0 >= adwin.minWindow && n1 >= adwin.minWindow && adwin.cut(n0, n1, u0, u1) {
					reduce = true
					changed = true
					if adwin.width > 0 {
						adwin.deleteOldest()
					}
					break scan
				}
			}
		}
	}
	return changed
}

// cut は2つのサブウィンドウの平均差が境界を超えるかを返す
func (adwin *ADWIN) cut(n0, n1 int, u0, u1 float64) bool {
	n := float64(adwin.width)
	diff := math.Abs(u0/float64(n0) - u1/float64(n1))
	v := adwin.variance / n
	dd := math.Log(2 * math.Log(n) / adwin.delta)
	m := 1/float64(n0-adwin.minWindow+1) + 1/float64(n1-adwin.minWindow+1)
	epsilon := math.Sqrt(2*m*v*dd) + 2.0/3.0*dd*m
	return diff > epsilon
}

// deleteOldest は最も古いバケットを削除する
func (adwin *ADWIN) deleteOldest() {
	top := len(adwin.levels) - 1
	b := adwin.levels[top][0]
	n := float64(bucketSize(top))

	adwin.width -= int(n)
	adwin.total -= b.total
	u := b.total / n
	mean := 0.0
	if adwin.width > 0 {
		mean = adwin.total / float64(adwin.width)
	}
	adwin.variance -= b.variance + n*float64(adwin.width)*(u-mean)*(u-mean)/(n+float64(adwin.width))
	if adwin.variance < 0 {
		adwin.variance = 0
	}

	adwin.levels[top] = adwin.levels[top][1:]
	for len(adwin.levels) > 0 && len(adwin.levels[len(adwin.levels)-1]) == 0 {
		adwin.levels = adwin.levels[:len(adwin.levels)-1]
	}
}

func bucketSize(level int) int {
	return 1 << level
}

// Detected は直前の Update でドリフトを検出したかを返す
func (adwin *ADWIN) Detected() bool {
	adwin.mu.RLock()
	defer adwin.mu.RUnlock()
	return adwin.detected
}

// Estimation は現在のウィンドウの平均を返す
func (adwin *ADWIN) Estimation() float64 {
	adwin.mu.RLock()
	defer adwin.mu.RUnlock()

	if adwin.width == 0 {
		return 0
	}
	return adwin.total / float64(adwin.width)
}

// Threshold は信頼度パラメータを返す
func (adwin *ADWIN) Threshold() float64 {
	return adwin.delta
}

// Name returns "ADWIN".
func (adwin *ADWIN) Name() string {
	return "ADWIN"
}

// Width は現在のウィンドウ幅を返す
func (adwin *ADWIN) Width() int {
	adwin.mu.RLock()
	defer adwin.mu.RUnlock()
	return adwin.width
}

// Variance は現在のウィンドウの分散を返す
func (adwin *ADWIN) Variance() float64 {
	adwin.mu.RLock()
	defer adwin.mu.RUnlock()

	if adwin.width == 0 {
		return 0
	}
	return adwin.variance / float64(adwin.width)
}

// NDrifts は検出したドリフトの回数を返す
func (adwin *ADWIN) NDrifts() int {
	adwin.mu.RLock()
	defer adwin.mu.RUnlock()
	return adwin.nDrifts
}

// Reset はADWINをリセット
func (adwin *ADWIN) Reset() {
	adwin.mu.Lock()
	defer adwin.mu.Unlock()

	adwin.levels = nil
	adwin.total = 0
	adwin.variance = 0
	adwin.width = 0
	adwin.tick = 0
	adwin.detected = false
}
