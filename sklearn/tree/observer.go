package tree

import (
	"math"
	"slices"
)

// quantizationObserver は数値特徴量を半径 radius のビンに量子化し、
// ビンごとに目的変数の統計量を保持する
type quantizationObserver struct {
	radius float64
	bins   map[int]*qoBin
}

type qoBin struct {
	xWeight float64
	xMean   float64
	y       targetStats
}

func newQuantizationObserver(radius float64) *quantizationObserver {
	return &quantizationObserver{radius: radius, bins: make(map[int]*qoBin)}
}

func (o *quantizationObserver) update(x, y, w float64) {
	if math.IsNaN(x) {
		return
	}
	key := int(math.Floor(x / o.radius))
	b, ok := o.bins[key]
	if !ok {
		b = &qoBin{}
		o.bins[key] = b
	}
	b.xWeight += w
	b.xMean += w / b.xWeight * (x - b.xMean)
	b.y.update(y, w)
}

// splitSuggestion は1つの候補分割
type splitSuggestion struct {
	feature   int
	threshold float64
	merit     float64
	left      targetStats
	right     targetStats
}

// bestSplit はビン境界の中点を閾値とする候補のうち、分散減少量が最大のものを返す
func (o *quantizationObserver) bestSplit(feature int, minBranch float64) (splitSuggestion, bool) {
	if len(o.bins) < 2 {
		return splitSuggestion{}, false
	}
	keys := make([]int, 0, len(o.bins))
	for k := range o.bins {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// 右側の統計量は後ろからの累積で求める
	suffix := make([]targetStats, len(keys)+1)
	for i := len(keys) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1].merge(o.bins[keys[i]].y)
	}

	pre := suffix[0]
	best := splitSuggestion{feature: feature, merit: math.Inf(-1)}
	var left targetStats
	for i := 0; i < len(keys)-1; i++ {
		left = left.merge(o.bins[keys[i]].y)
		right := suffix[i+1]
		merit := varianceReduction(pre, left, right, minBranch)
		if merit > best.merit {
			best.merit = merit
			best.threshold = (o.bins[keys[i]].xMean + o.bins[keys[i+1]].xMean) / 2
			best.left = left
			best.right = right
		}
	}
	return best, !math.IsInf(best.merit, -1)
}

// varianceReduction は分割前後の分散の差を返す。
// どちらかの子の重みが minBranch 未満なら -Inf。
func varianceReduction(pre, left, right targetStats, minBranch float64) float64 {
	if left.weight < minBranch || right.weight < minBranch {
		return math.Inf(-1)
	}
	n := pre.weight
	return pre.variance() - (left.weight/n*left.variance() + right.weight/n*right.variance())
}
