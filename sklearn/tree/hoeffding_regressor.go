// Package tree はストリーム学習向けの決定木を提供します。
//
// HoeffdingTreeRegressor は FIMT-DD 系のインクリメンタル回帰木で、
// 葉ごとに目的変数の統計量と特徴量ごとの量子化オブザーバを持ち、
// Hoeffding 境界で分割の確からしさを判定します。
package tree

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/YuminosukeSato/stopcast/core/model"
	"github.com/YuminosukeSato/stopcast/metrics"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// minBranchWeight は分割後の各子ノードに必要な最小重み
const minBranchWeight = 5.0

// HoeffdingTreeRegressor はインクリメンタルな回帰木
type HoeffdingTreeRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	gracePeriod     float64 // 分割を試みる間隔（重み）
	splitConfidence float64 // δ: 誤った分割を選ぶ許容確率
	tieThreshold    float64 // τ: 候補が拮抗しているとみなす境界
	maxDepth        int     // 最大深さ（0は無制限）
	leafPrediction  string  // 葉の予測方式
	learningRate    float64 // 線形葉の学習率
	maxFeatures     int     // 葉ごとの候補特徴量数（0はすべて）
	radius          float64 // 量子化オブザーバのビン幅
	seed            uint64

	rng     *rand.Rand
	root    *node
	nSplits int

	mu sync.RWMutex
}

type node struct {
	depth int

	// 分割ノード
	feature   int
	threshold float64
	left      *node
	right     *node

	// 葉ノード（分割ノードではnil）
	leaf *leafState
}

type leafState struct {
	stats       targetStats
	features    []int
	observers   map[int]*quantizationObserver
	model       *leafModel
	lastAttempt float64
}

// TreeOption は HoeffdingTreeRegressor の設定オプション
type TreeOption func(*HoeffdingTreeRegressor)

// WithGracePeriod は分割を試みる間隔を設定
func WithGracePeriod(n float64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if n > 0 {
			t.gracePeriod = n
		}
	}
}

// WithSplitConfidence は分割の信頼度パラメータδを設定
func WithSplitConfidence(delta float64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if delta > 0 && delta < 1 {
			t.splitConfidence = delta
		}
	}
}

// WithTieThreshold はタイ判定の閾値τを設定
func WithTieThreshold(tau float64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if tau >= 0 {
			t.tieThreshold = tau
		}
	}
}

// WithMaxDepth は最大深さを設定（0は無制限）
func WithMaxDepth(depth int) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if depth >= 0 {
			t.maxDepth = depth
		}
	}
}

// WithLeafPrediction は葉の予測方式（mean, model, adaptive）を設定
func WithLeafPrediction(kind string) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		switch kind {
		case LeafMean, LeafModel, LeafAdaptive:
			t.leafPrediction = kind
		}
	}
}

// WithLearningRate は線形葉の学習率を設定
func WithLearningRate(lr float64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if lr > 0 {
			t.learningRate = lr
		}
	}
}

// WithMaxFeatures は葉ごとにランダムに選ぶ候補特徴量数を設定（0はすべて）
func WithMaxFeatures(n int) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if n >= 0 {
			t.maxFeatures = n
		}
	}
}

// WithRadius は量子化オブザーバのビン幅を設定
func WithRadius(r float64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		if r > 0 {
			t.radius = r
		}
	}
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed uint64) TreeOption {
	return func(t *HoeffdingTreeRegressor) {
		t.seed = seed
	}
}

// NewHoeffdingTreeRegressor は新しい HoeffdingTreeRegressor を作成
//
// 使用例:
//
//	ht := tree.NewHoeffdingTreeRegressor(
//	    tree.WithGracePeriod(200),
//	    tree.WithLeafPrediction(tree.LeafAdaptive),
//	)
//	pred, _ := ht.PredictOne(x)
//	_ = ht.LearnOne(x, y, 1)
func NewHoeffdingTreeRegressor(options ...TreeOption) *HoeffdingTreeRegressor {
	t := &HoeffdingTreeRegressor{
		state:           model.NewStateManager(),
		gracePeriod:     200,
		splitConfidence: 1e-7,
		tieThreshold:    0.05,
		leafPrediction:  LeafAdaptive,
		learningRate:    0.01,
		radius:          0.25,
		seed:            42,
	}
	for _, opt := range options {
		opt(t)
	}
	t.rng = rand.New(rand.NewPCG(t.seed, t.seed^0x9e3779b97f4a7c15))
	return t
}

// LearnOne は1サンプルで木を更新する
func (t *HoeffdingTreeRegressor) LearnOne(x []float64, y, weight float64) error {
	if weight <= 0 {
		return nil
	}
	if err := t.state.Observe("HoeffdingTreeRegressor.LearnOne", len(x)); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		t.root = t.newLeafNode(0, len(x), targetStats{}, newLeafModel(t.leafPrediction, t.learningRate))
	}

	n := t.sort(x)
	leaf := n.leaf
	if err := leaf.model.learn(x, y, weight, leaf.stats); err != nil {
		return err
	}
	leaf.stats.update(y, weight)
	for _, f := range leaf.features {
		leaf.observers[f].update(x[f], y, weight)
	}

	if leaf.stats.weight-leaf.lastAttempt >= t.gracePeriod {
		if t.maxDepth == 0 || n.depth < t.maxDepth {
			t.attemptSplit(n, len(x))
		}
		if n.leaf != nil {
			n.leaf.lastAttempt = n.leaf.stats.weight
		}
	}
	return nil
}

// PredictOne は1サンプルを予測する。未学習の場合は0を返す
func (t *HoeffdingTreeRegressor) PredictOne(x []float64) (float64, error) {
	if err := t.state.CheckFeatures("HoeffdingTreeRegressor.PredictOne", len(x)); err != nil {
		return 0, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root == nil {
		return 0, nil
	}
	leaf := t.sort(x).leaf
	return leaf.model.predict(x, leaf.stats)
}

// sort はサンプルが到達する葉ノードを返す
func (t *HoeffdingTreeRegressor) sort(x []float64) *node {
	n := t.root
	for n.leaf == nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// attemptSplit は候補分割を評価し、Hoeffding 境界を満たせば葉を分割する
func (t *HoeffdingTreeRegressor) attemptSplit(n *node, nFeatures int) {
	leaf := n.leaf

	// 分割しない場合の候補（merit 0）
	suggestions := []splitSuggestion{{feature: -1}}
	for _, f := range leaf.features {
		if s, ok := leaf.observers[f].bestSplit(f, minBranchWeight); ok {
			suggestions = append(suggestions, s)
		}
	}
	if len(suggestions) < 2 {
		return
	}
	slices.SortStableFunc(suggestions, func(a, b splitSuggestion) int {
		switch {
		case a.merit < b.merit:
			return -1
		case a.merit > b.merit:
			return 1
		}
		return 0
	})

	best := suggestions[len(suggestions)-1]
	second := suggestions[len(suggestions)-2]
	if best.feature < 0 || best.merit <= 0 {
		return
	}

	eps := hoeffdingBound(1, t.splitConfidence, leaf.stats.weight)
	if second.merit/best.merit < 1-eps || eps < t.tieThreshold {
		n.feature = best.feature
		n.threshold = best.threshold
		n.left = t.newLeafNode(n.depth+1, nFeatures, best.left, leaf.model.clone())
		n.right = t.newLeafNode(n.depth+1, nFeatures, best.right, leaf.model.clone())
		n.leaf = nil
		t.nSplits++
	}
}

func (t *HoeffdingTreeRegressor) newLeafNode(depth, nFeatures int, stats targetStats, m *leafModel) *node {
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	if t.maxFeatures > 0 && t.maxFeatures < nFeatures {
		features = t.rng.Perm(nFeatures)[:t.maxFeatures]
		slices.Sort(features)
	}

	observers := make(map[int]*quantizationObserver, len(features))
	for _, f := range features {
		observers[f] = newQuantizationObserver(t.radius)
	}
	return &node{
		depth: depth,
		leaf: &leafState{
			stats:       stats,
			features:    features,
			observers:   observers,
			model:       m,
			lastAttempt: stats.weight,
		},
	}
}

// hoeffdingBound は範囲 r の確率変数の n 観測に対する Hoeffding 境界を返す
func hoeffdingBound(r, delta, n float64) float64 {
	return math.Sqrt(r * r * math.Log(1/delta) / (2 * n))
}

// PartialFit は X の各行を順に学習する
func (t *HoeffdingTreeRegressor) PartialFit(X, y mat.Matrix, _ []int) error {
	yv, err := metrics.MatrixColumn("HoeffdingTreeRegressor.PartialFit", y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	if yv.Len() != rows {
		return errors.NewDimensionError("HoeffdingTreeRegressor.PartialFit", rows, yv.Len(), 0)
	}
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		if err := t.LearnOne(x, yv.AtVec(i), 1); err != nil {
			return err
		}
	}
	return nil
}

// Fit は木をリセットしてから1パス学習する
func (t *HoeffdingTreeRegressor) Fit(X, y mat.Matrix) error {
	t.Reset()
	return t.PartialFit(X, y, nil)
}

// Predict は入力データに対する予測を行う
func (t *HoeffdingTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state.RequireFitted("HoeffdingTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		p, err := t.PredictOne(x)
		if err != nil {
			return nil, err
		}
		out.Set(i, 0, p)
	}
	return out, nil
}

// Score は決定係数R²を返す
func (t *HoeffdingTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	yv, err := metrics.MatrixColumn("HoeffdingTreeRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	pv, err := metrics.MatrixColumn("HoeffdingTreeRegressor.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yv, pv)
}

// NNodes はノード数を返す
func (t *HoeffdingTreeRegressor) NNodes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	t.walk(func(*node) { count++ })
	return count
}

// NLeaves は葉ノード数を返す
func (t *HoeffdingTreeRegressor) NLeaves() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	t.walk(func(n *node) {
		if n.leaf != nil {
			count++
		}
	})
	return count
}

// Depth は最も深い葉の深さを返す（根のみの木は0）
func (t *HoeffdingTreeRegressor) Depth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	depth := 0
	t.walk(func(n *node) {
		depth = max(depth, n.depth)
	})
	return depth
}

// NSplits は学習中に行った分割の回数を返す
func (t *HoeffdingTreeRegressor) NSplits() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nSplits
}

func (t *HoeffdingTreeRegressor) walk(fn func(*node)) {
	if t.root == nil {
		return
	}
	stack := []*node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n)
		if n.leaf == nil {
			stack = append(stack, n.left, n.right)
		}
	}
}

// Reset は木を未学習の状態に戻す
func (t *HoeffdingTreeRegressor) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Reset()
	t.root = nil
	t.nSplits = 0
	t.rng = rand.New(rand.NewPCG(t.seed, t.seed^0x9e3779b97f4a7c15))
}

var _ model.RegressorWithPartialFit = (*HoeffdingTreeRegressor)(nil)
