package tree

import "math"

// targetStats は重み付きの目的変数の平均と偏差平方和を保持する
type targetStats struct {
	weight float64
	mean   float64
	m2     float64
}

func (s *targetStats) update(y, w float64) {
	s.weight += w
	delta := y - s.mean
	s.mean += w / s.weight * delta
	s.m2 += w * delta * (y - s.mean)
}

// merge は2つの統計量を結合した統計量を返す (Chan et al.)
func (s targetStats) merge(o targetStats) targetStats {
	if s.weight == 0 {
		return o
	}
	if o.weight == 0 {
		return s
	}
	n := s.weight + o.weight
	delta := o.mean - s.mean
	return targetStats{
		weight: n,
		mean:   s.mean + delta*o.weight/n,
		m2:     s.m2 + o.m2 + delta*delta*s.weight*o.weight/n,
	}
}

// variance は母分散を返す
func (s targetStats) variance() float64 {
	if s.weight == 0 {
		return 0
	}
	return math.Max(s.m2/s.weight, 0)
}
