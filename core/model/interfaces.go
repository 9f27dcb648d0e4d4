// Package model defines the estimator interfaces shared by the online
// learners and the fitted-state bookkeeping they embed.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter はバッチで学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルをリセットし、訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n×1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X, y mat.Matrix) (float64, error)
}

// IncrementalLearner is the interface for models that support incremental learning.
type IncrementalLearner interface {
	// PartialFit updates the model with the rows of X in order.
	// classes is ignored by regressors and may be nil.
	PartialFit(X, y mat.Matrix, classes []int) error
}

// OnlineRegressor learns and predicts one sample at a time.
type OnlineRegressor interface {
	// LearnOne updates the model with a single weighted sample.
	LearnOne(x []float64, y, weight float64) error

	// PredictOne predicts a single sample. Models that have not seen any
	// data return 0.
	PredictOne(x []float64) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// RegressorWithPartialFit combines interfaces for online regression models.
type RegressorWithPartialFit interface {
	Regressor
	IncrementalLearner
	OnlineRegressor
}
