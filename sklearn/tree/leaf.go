package tree

import (
	"math"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/sklearn/linear_model"
)

// Leaf prediction strategies.
const (
	LeafMean     = "mean"
	LeafModel    = "model"
	LeafAdaptive = "adaptive"
)

// leafModel は葉ノードの予測器。mean は統計量の平均を、linear は
// SGD線形モデルを使い、adaptive は累積絶対誤差の小さい方を選ぶ。
type leafModel struct {
	kind   string
	linear *linear_model.SGDRegressor

	meanAbsErr   float64
	linearAbsErr float64
}

func newLeafModel(kind string, lr float64) *leafModel {
	m := &leafModel{kind: kind}
	if kind != LeafMean {
		m.linear = linear_model.NewSGDRegressor(linear_model.WithLearningRate(lr))
	}
	return m
}

func (m *leafModel) clone() *leafModel {
	c := &leafModel{
		kind:         m.kind,
		meanAbsErr:   m.meanAbsErr,
		linearAbsErr: m.linearAbsErr,
	}
	if m.linear != nil {
		c.linear = m.linear.Clone()
	}
	return c
}

// learn は予測誤差を記録してから線形モデルを更新する
func (m *leafModel) learn(x []float64, y, w float64, stats targetStats) error {
	if m.linear == nil {
		return nil
	}
	if m.kind == LeafAdaptive {
		m.meanAbsErr += w * math.Abs(y-stats.mean)
		p, err := m.linear.PredictOne(x)
		if err != nil {
			return err
		}
		m.linearAbsErr += w * math.Abs(y-p)
	}
	err := m.linear.LearnOne(x, y, w)
	var nie *errors.NumericalInstabilityError
	if errors.As(err, &nie) {
		// the linear model has already reset itself
		errors.Warn(err)
		return nil
	}
	return err
}

func (m *leafModel) predict(x []float64, stats targetStats) (float64, error) {
	switch {
	case m.linear == nil:
		return stats.mean, nil
	case m.kind == LeafAdaptive && m.meanAbsErr <= m.linearAbsErr:
		return stats.mean, nil
	default:
		return m.linear.PredictOne(x)
	}
}
