// Package ensemble provides online ensembles of Hoeffding trees.
package ensemble

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/YuminosukeSato/stopcast/core/model"
	"github.com/YuminosukeSato/stopcast/core/parallel"
	"github.com/YuminosukeSato/stopcast/metrics"
	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/sklearn/drift"
	"github.com/YuminosukeSato/stopcast/sklearn/tree"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Aggregation methods for combining member predictions.
const (
	AggregateMean   = "mean"
	AggregateMedian = "median"
)

// predictParallelThreshold is the row count from which Predict fans out.
const predictParallelThreshold = 256

// AdaptiveRandomForestRegressor is an online random forest of Hoeffding
// trees. Each member sees every sample with a Poisson(λ) weight, splits on a
// random feature subspace and is replaced when its error drifts.
//
// Gomes et al. (2018) "Adaptive random forests for data stream regression".
type AdaptiveRandomForestRegressor struct {
	state *model.StateManager

	nModels        int
	maxFeatures    int
	lambda         float64
	aggregation    string
	warningFactory drift.Factory
	driftFactory   drift.Factory
	treeOptions    []tree.TreeOption
	seed           uint64

	members []*forestMember
	rng     *rand.Rand
	poisson distuv.Poisson

	mu sync.RWMutex
}

type forestMember struct {
	index      int
	model      *tree.HoeffdingTreeRegressor
	background *tree.HoeffdingTreeRegressor
	warning    drift.Detector
	drift      drift.Detector
	metric     *metrics.Running

	nWarnings int
	nDrifts   int
}

// ForestOption configures an AdaptiveRandomForestRegressor.
type ForestOption func(*AdaptiveRandomForestRegressor)

// WithNModels sets the number of trees.
func WithNModels(n int) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		if n > 0 {
			f.nModels = n
		}
	}
}

// WithMaxFeatures sets the feature subspace size per leaf. 0 means
// round(sqrt(m)) for m input features.
func WithMaxFeatures(n int) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		if n >= 0 {
			f.maxFeatures = n
		}
	}
}

// WithLambda sets the Poisson rate used for online bagging.
func WithLambda(lambda float64) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		if lambda > 0 {
			f.lambda = lambda
		}
	}
}

// WithAggregation sets how member predictions are combined (mean or median).
func WithAggregation(method string) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		switch method {
		case AggregateMean, AggregateMedian:
			f.aggregation = method
		}
	}
}

// WithDetectors sets the warning and drift detector factories. A nil warning
// factory disables background learners; a nil drift factory disables drift
// handling altogether.
func WithDetectors(warning, driftFactory drift.Factory) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		f.warningFactory = warning
		f.driftFactory = driftFactory
	}
}

// WithTreeOptions sets options applied to every member tree.
func WithTreeOptions(opts ...tree.TreeOption) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		f.treeOptions = append(f.treeOptions, opts...)
	}
}

// WithRandomState sets the seed for bagging weights and feature subspaces.
func WithRandomState(seed uint64) ForestOption {
	return func(f *AdaptiveRandomForestRegressor) {
		f.seed = seed
	}
}

// NewAdaptiveRandomForestRegressor creates a forest with 10 members, λ = 6,
// mean aggregation and ADWIN warning/drift detectors.
func NewAdaptiveRandomForestRegressor(options ...ForestOption) *AdaptiveRandomForestRegressor {
	warning, driftFactory, _ := drift.NewFactory(drift.KindADWIN)
	f := &AdaptiveRandomForestRegressor{
		state:          model.NewStateManager(),
		nModels:        10,
		lambda:         6,
		aggregation:    AggregateMean,
		warningFactory: warning,
		driftFactory:   driftFactory,
		seed:           42,
	}
	for _, opt := range options {
		opt(f)
	}
	f.resetRandom()
	return f
}

func (f *AdaptiveRandomForestRegressor) resetRandom() {
	f.rng = rand.New(rand.NewPCG(f.seed, f.seed+1))
	f.poisson = distuv.Poisson{Lambda: f.lambda, Src: rand.NewPCG(f.seed+2, f.seed+3)}
}

// LearnOne predicts x with every member, feeds the absolute errors to the
// detectors and then trains each member with a Poisson(λ)·weight.
func (f *AdaptiveRandomForestRegressor) LearnOne(x []float64, y, weight float64) error {
	if weight <= 0 {
		return nil
	}
	if err := f.state.Observe("AdaptiveRandomForestRegressor.LearnOne", len(x)); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.members == nil {
		f.initMembers(len(x))
	}

	for _, m := range f.members {
		pred, err := m.model.PredictOne(x)
		if err != nil {
			return err
		}
		m.metric.Update(y, pred, 1)
		f.detect(m, len(x), math.Abs(y-pred))

		k := f.poisson.Rand()
		if k <= 0 {
			continue
		}
		if m.background != nil {
			if err := m.background.LearnOne(x, y, k*weight); err != nil {
				return err
			}
		}
		if err := m.model.LearnOne(x, y, k*weight); err != nil {
			return err
		}
	}
	return nil
}

// detect updates the member's detectors with its prequential error.
func (f *AdaptiveRandomForestRegressor) detect(m *forestMember, nFeatures int, absErr float64) {
	if m.warning != nil && m.warning.Update(absErr) {
		m.background = f.newTree(nFeatures)
		m.warning.Reset()
		m.nWarnings++
	}

	if m.drift == nil || !m.drift.Update(absErr) {
		return
	}

	action := "reset"
	if m.background != nil {
		m.model = m.background
		m.background = nil
		action = "swap_background"
	} else {
		m.model = f.newTree(nFeatures)
	}
	errors.Warn(errors.NewModelDriftWarning(m.drift.Name(), m.index,
		m.drift.Estimation(), m.drift.Threshold(), action))

	m.drift.Reset()
	if m.warning != nil {
		m.warning.Reset()
	}
	m.metric = metrics.NewRunning()
	m.nDrifts++
}

func (f *AdaptiveRandomForestRegressor) initMembers(nFeatures int) {
	f.members = make([]*forestMember, f.nModels)
	for i := range f.members {
		m := &forestMember{
			index:  i,
			model:  f.newTree(nFeatures),
			metric: metrics.NewRunning(),
		}
		if f.driftFactory != nil {
			m.drift = f.driftFactory()
			if f.warningFactory != nil {
				m.warning = f.warningFactory()
			}
		}
		f.members[i] = m
	}
}

func (f *AdaptiveRandomForestRegressor) newTree(nFeatures int) *tree.HoeffdingTreeRegressor {
	k := f.maxFeatures
	if k == 0 {
		k = int(math.Round(math.Sqrt(float64(nFeatures))))
	}
	k = max(1, min(k, nFeatures))

	opts := slices.Clone(f.treeOptions)
	opts = append(opts, tree.WithMaxFeatures(k), tree.WithRandomState(f.rng.Uint64()))
	return tree.NewHoeffdingTreeRegressor(opts...)
}

// PredictOne aggregates the member predictions. An untrained forest returns 0.
func (f *AdaptiveRandomForestRegressor) PredictOne(x []float64) (float64, error) {
	if err := f.state.CheckFeatures("AdaptiveRandomForestRegressor.PredictOne", len(x)); err != nil {
		return 0, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.members) == 0 {
		return 0, nil
	}
	preds := make([]float64, len(f.members))
	for i, m := range f.members {
		p, err := m.model.PredictOne(x)
		if err != nil {
			return 0, err
		}
		preds[i] = p
	}
	return aggregate(f.aggregation, preds), nil
}

func aggregate(method string, preds []float64) float64 {
	if method == AggregateMedian {
		slices.Sort(preds)
		n := len(preds)
		if n%2 == 1 {
			return preds[n/2]
		}
		return (preds[n/2-1] + preds[n/2]) / 2
	}
	return stat.Mean(preds, nil)
}

// PartialFit learns the rows of X in order.
func (f *AdaptiveRandomForestRegressor) PartialFit(X, y mat.Matrix, _ []int) error {
	yv, err := metrics.MatrixColumn("AdaptiveRandomForestRegressor.PartialFit", y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	if yv.Len() != rows {
		return errors.NewDimensionError("AdaptiveRandomForestRegressor.PartialFit", rows, yv.Len(), 0)
	}
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		if err := f.LearnOne(x, yv.AtVec(i), 1); err != nil {
			return err
		}
	}
	return nil
}

// Fit resets the forest and learns X in one pass.
func (f *AdaptiveRandomForestRegressor) Fit(X, y mat.Matrix) error {
	f.Reset()
	return f.PartialFit(X, y, nil)
}

// Predict predicts every row of X. Large inputs are split across goroutines.
func (f *AdaptiveRandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted("AdaptiveRandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := f.state.CheckFeatures("AdaptiveRandomForestRegressor.Predict", cols); err != nil {
		return nil, err
	}

	out := mat.NewDense(rows, 1, nil)
	var (
		errMu    sync.Mutex
		firstErr error
	)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		x := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			p, err := f.PredictOne(x)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			// rows are disjoint across workers
			out.Set(i, 0, p)
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Score returns the coefficient of determination R² on X.
func (f *AdaptiveRandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	yv, err := metrics.MatrixColumn("AdaptiveRandomForestRegressor.Score", y)
	if err != nil {
		return 0, err
	}
	pv, err := metrics.MatrixColumn("AdaptiveRandomForestRegressor.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yv, pv)
}

// NModels returns the configured number of members.
func (f *AdaptiveRandomForestRegressor) NModels() int {
	return f.nModels
}

// NDrifts returns the number of member replacements caused by drift.
func (f *AdaptiveRandomForestRegressor) NDrifts() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, m := range f.members {
		n += m.nDrifts
	}
	return n
}

// NWarnings returns the number of background trees started.
func (f *AdaptiveRandomForestRegressor) NWarnings() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, m := range f.members {
		n += m.nWarnings
	}
	return n
}

// NNodes returns the total node count over all members.
func (f *AdaptiveRandomForestRegressor) NNodes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, m := range f.members {
		n += m.model.NNodes()
	}
	return n
}

// MemberMAE returns each member's running MAE since its last replacement.
func (f *AdaptiveRandomForestRegressor) MemberMAE() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]float64, len(f.members))
	for i, m := range f.members {
		out[i] = m.metric.MAE()
	}
	return out
}

// Reset discards every member and restores the initial random state.
func (f *AdaptiveRandomForestRegressor) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Reset()
	f.members = nil
	f.resetRandom()
}

var _ model.RegressorWithPartialFit = (*AdaptiveRandomForestRegressor)(nil)
