package pipeline

import (
	"github.com/YuminosukeSato/stopcast/internal/config"
	"github.com/YuminosukeSato/stopcast/sklearn/drift"
	"github.com/YuminosukeSato/stopcast/sklearn/ensemble"
	"github.com/YuminosukeSato/stopcast/sklearn/tree"
)

// NewForest builds the per-stop regressor described by cfg.
func NewForest(cfg config.ModelConfig) (*ensemble.AdaptiveRandomForestRegressor, error) {
	opts := []ensemble.ForestOption{
		ensemble.WithNModels(cfg.NModels),
		ensemble.WithMaxFeatures(cfg.MaxFeatures),
		ensemble.WithLambda(cfg.Lambda),
		ensemble.WithAggregation(cfg.Aggregation),
		ensemble.WithRandomState(cfg.Seed),
		ensemble.WithTreeOptions(
			tree.WithGracePeriod(cfg.GracePeriod),
			tree.WithSplitConfidence(cfg.SplitConfidence),
			tree.WithTieThreshold(cfg.TieThreshold),
			tree.WithMaxDepth(cfg.MaxDepth),
			tree.WithLeafPrediction(cfg.LeafPrediction),
			tree.WithLearningRate(cfg.LearningRate),
		),
	}

	if cfg.DriftDetector == "none" {
		opts = append(opts, ensemble.WithDetectors(nil, nil))
	} else {
		warning, driftFactory, err := drift.NewFactory(cfg.DriftDetector)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ensemble.WithDetectors(warning, driftFactory))
	}
	return ensemble.NewAdaptiveRandomForestRegressor(opts...), nil
}
