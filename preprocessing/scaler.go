package preprocessing

import (
	"fmt"
	"math"
	"sync"

	"github.com/YuminosukeSato/stopcast/core/model"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StandardScaler はサンプル単位で更新できる標準化スケーラー
// 重み付きWelford法で平均と分散を逐次更新し、データを平均0、標準偏差1に変換する
type StandardScaler struct {
	mu sync.RWMutex

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	weights []float64 // 特徴量ごとの累積重み
	means   []float64 // 特徴量ごとの平均
	m2      []float64 // 特徴量ごとの偏差平方和
}

var _ model.OnlineTransformer = (*StandardScaler)(nil)

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	for _, x := range stream {
//	    scaler.LearnOne(x, 1)
//	    z := scaler.TransformOne(x)
//	}
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// LearnOne は1サンプル分の統計量を更新する
// 最初のサンプルで特徴量数が決まり、以降の長さの異なるサンプルは不足分だけ拡張される
func (s *StandardScaler) LearnOne(x []float64, weight float64) {
	if weight <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grow(len(x))
	for j, v := range x {
		s.weights[j] += weight
		delta := v - s.means[j]
		s.means[j] += weight / s.weights[j] * delta
		s.m2[j] += weight * delta * (v - s.means[j])
	}
}

// TransformOne は現在の統計量で1サンプルを変換する
// 分散が0の特徴量は0に変換される
func (s *StandardScaler) TransformOne(x []float64) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(x))
	for j, v := range x {
		if j >= len(s.means) {
			out[j] = v
			continue
		}
		z := v
		if s.WithMean {
			z -= s.means[j]
		}
		if s.WithStd {
			z = errors.SafeDivide(z, s.std(j))
		}
		out[j] = z
	}
	return out
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
// 既存の統計量は破棄される
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.Reset()
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		s.LearnOne(row, 1)
	}
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if s.NFeatures() == 0 {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures() {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures(), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		result.SetRow(i, s.TransformOne(row))
	}
	return result, nil
}

// Mean は特徴量ごとの現在の平均を返す
func (s *StandardScaler) Mean() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.means...)
}

// Scale は特徴量ごとの現在の標準偏差を返す
func (s *StandardScaler) Scale() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.means))
	for j := range out {
		out[j] = s.std(j)
	}
	return out
}

// NFeatures は統計量を持つ特徴量の数を返す
func (s *StandardScaler) NFeatures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.means)
}

// Reset は統計量を破棄する
func (s *StandardScaler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights, s.means, s.m2 = nil, nil, nil
}

// Clone は統計量ごとコピーしたスケーラーを返す
func (s *StandardScaler) Clone() *StandardScaler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &StandardScaler{
		WithMean: s.WithMean,
		WithStd:  s.WithStd,
		weights:  append([]float64(nil), s.weights...),
		means:    append([]float64(nil), s.means...),
		m2:       append([]float64(nil), s.m2...),
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures())
}

func (s *StandardScaler) grow(n int) {
	for len(s.means) < n {
		s.weights = append(s.weights, 0)
		s.means = append(s.means, 0)
		s.m2 = append(s.m2, 0)
	}
}

// std は母標準偏差を返す（ロック保持が前提）
func (s *StandardScaler) std(j int) float64 {
	if s.weights[j] == 0 {
		return 0
	}
	return math.Sqrt(s.m2[j] / s.weights[j])
}
