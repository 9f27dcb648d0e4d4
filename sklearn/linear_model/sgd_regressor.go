package linear_model

import (
	"sync"

	"github.com/YuminosukeSato/stopcast/core/model"
	"github.com/YuminosukeSato/stopcast/metrics"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/preprocessing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SGDRegressor はサンプル単位の確率的勾配降下で学習する線形回帰モデル
// 入力はオンラインで標準化され、二乗損失の勾配で重みを更新する
type SGDRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	learningRate float64 // 学習率
	fitIntercept bool    // 切片を学習するか
	scale        bool    // 入力をオンライン標準化するか

	// 学習パラメータ
	coef      []float64 // 重み係数
	intercept float64   // 切片
	scaler    *preprocessing.StandardScaler

	mu sync.RWMutex
}

var _ model.RegressorWithPartialFit = (*SGDRegressor)(nil)

// maxStandardized は標準化後の入力の上限（絶対値）
const maxStandardized = 10

// SGDOption は SGDRegressor の設定オプション
type SGDOption func(*SGDRegressor)

// WithLearningRate は学習率を設定
func WithLearningRate(lr float64) SGDOption {
	return func(s *SGDRegressor) {
		if lr > 0 {
			s.learningRate = lr
		}
	}
}

// WithFitIntercept は切片学習の有無を設定
func WithFitIntercept(fit bool) SGDOption {
	return func(s *SGDRegressor) {
		s.fitIntercept = fit
	}
}

// WithScaling は入力のオンライン標準化の有無を設定
func WithScaling(scale bool) SGDOption {
	return func(s *SGDRegressor) {
		s.scale = scale
	}
}

// NewSGDRegressor は新しい SGDRegressor を作成
//
// 使用例:
//
//	reg := linear_model.NewSGDRegressor(linear_model.WithLearningRate(0.01))
//	for i := range xs {
//	    pred, _ := reg.PredictOne(xs[i])
//	    _ = reg.LearnOne(xs[i], ys[i], 1)
//	}
func NewSGDRegressor(options ...SGDOption) *SGDRegressor {
	s := &SGDRegressor{
		state:        model.NewStateManager(),
		learningRate: 0.01,
		fitIntercept: true,
		scale:        true,
		scaler:       preprocessing.NewStandardScalerDefault(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// LearnOne は1サンプルで重みを更新する
func (s *SGDRegressor) LearnOne(x []float64, y, weight float64) error {
	if weight <= 0 {
		return nil
	}
	if err := s.state.Observe("SGDRegressor.LearnOne", len(x)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coef == nil {
		s.coef = make([]float64, len(x))
	}
	if s.scale {
		s.scaler.LearnOne(x, weight)
	}
	z := s.transform(x)

	// 二乗損失の勾配: -(y - ŷ)·z
	// 1ステップで残差を反転させないよう、step·‖z‖² ≤ 1 に抑える（正規化LMS）
	step := s.learningRate * weight
	norm := floats.Dot(z, z)
	if s.fitIntercept {
		norm++
	}
	if step*norm > 1 {
		step = 1 / norm
	}
	g := step * (y - s.raw(z))
	for j, v := range z {
		s.coef[j] += g * v
	}
	if s.fitIntercept {
		s.intercept += g
	}

	if err := errors.CheckNumericalStability("SGDRegressor.LearnOne", s.coef, s.state.NSamples()); err != nil {
		s.coef = make([]float64, len(x))
		s.intercept = 0
		return err
	}
	return nil
}

// PredictOne は1サンプルを予測する。未学習の場合は0を返す
func (s *SGDRegressor) PredictOne(x []float64) (float64, error) {
	if err := s.state.CheckFeatures("SGDRegressor.PredictOne", len(x)); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coef == nil {
		return 0, nil
	}
	return s.raw(s.transform(x)), nil
}

// PartialFit は X の各行を順に学習する
func (s *SGDRegressor) PartialFit(X, y mat.Matrix, _ []int) error {
	yv, err := metrics.MatrixColumn("SGDRegressor.PartialFit", y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	if yv.Len() != rows {
		return errors.NewDimensionError("SGDRegressor.PartialFit", rows, yv.Len(), 0)
	}
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		if err := s.LearnOne(x, yv.AtVec(i), 1); err != nil {
			return err
		}
	}
	return nil
}

// Fit はモデルをリセットしてから1パス学習する
func (s *SGDRegressor) Fit(X, y mat.Matrix) error {
	s.Reset()
	return s.PartialFit(X, y, nil)
}

// Predict は入力データに対する予測を行う
func (s *SGDRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SGDRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		p, err := s.PredictOne(x)
		if err != nil {
			return nil, err
		}
		out.Set(i, 0, p)
	}
	return out, nil
}

// Score は決定係数R²を返す
func (s *SGDRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	yv, err := metrics.MatrixColumn("SGDRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	pv, err := metrics.MatrixColumn("SGDRegressor.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yv, pv)
}

// Coef は重み係数のコピーを返す（標準化後の空間）
func (s *SGDRegressor) Coef() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.coef...)
}

// Intercept は切片を返す
func (s *SGDRegressor) Intercept() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intercept
}

// Clone は学習済みの状態ごとコピーしたモデルを返す
func (s *SGDRegressor) Clone() *SGDRegressor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &SGDRegressor{
		state:        model.NewStateManager(),
		learningRate: s.learningRate,
		fitIntercept: s.fitIntercept,
		scale:        s.scale,
		coef:         append([]float64(nil), s.coef...),
		intercept:    s.intercept,
		scaler:       s.scaler.Clone(),
	}
	if s.coef != nil {
		// 特徴量数を引き継ぐ
		_ = c.state.Observe("SGDRegressor.Clone", len(s.coef))
	}
	return c
}

// Reset は学習済みの状態を破棄する
func (s *SGDRegressor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
	s.coef = nil
	s.intercept = 0
	s.scaler.Reset()
}

func (s *SGDRegressor) transform(x []float64) []float64 {
	if !s.scale {
		return x
	}
	z := s.scaler.TransformOne(x)
	// 分散の推定が安定する前は標準化値が極端になる
	for j, v := range z {
		z[j] = errors.ClipValue(v, -maxStandardized, maxStandardized)
	}
	return z
}

func (s *SGDRegressor) raw(z []float64) float64 {
	p := s.intercept
	for j, v := range z {
		p += s.coef[j] * v
	}
	return p
}
