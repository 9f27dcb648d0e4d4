package model

import (
	"sync"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Online models become fitted on their first learned sample and fix their
// feature count at that point.
type StateManager struct {
	mu sync.RWMutex

	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// Observe records one learned sample with nFeatures features. The first
// call fixes the feature count; later calls with a different count fail.
func (s *StateManager) Observe(op string, nFeatures int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fitted {
		s.fitted = true
		s.nFeatures = nFeatures
	} else if nFeatures != s.nFeatures {
		return errors.NewDimensionError(op, s.nFeatures, nFeatures, 1)
	}
	s.nSamples++
	return nil
}

// NFeatures returns the number of features seen during fitting.
func (s *StateManager) NFeatures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures
}

// NSamples returns the number of samples learned since the last reset.
func (s *StateManager) NSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nSamples
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckFeatures fails with a DimensionError when a fitted model receives a
// different number of features. Unfitted models accept anything.
func (s *StateManager) CheckFeatures(op string, nFeatures int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fitted && nFeatures != s.nFeatures {
		return errors.NewDimensionError(op, s.nFeatures, nFeatures, 1)
	}
	return nil
}
