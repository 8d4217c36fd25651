package service

import (
	"github.com/okian/vigil/internal/domain/features"
	"github.com/okian/vigil/internal/domain/scoring"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOracle replaces the default scoring oracle.
func WithOracle(o scoring.Oracle) Option {
	return func(s *Service) {
		if o != nil {
			s.oracle = o
		}
	}
}

// WithFeatureStore replaces the default feature snapshot store.
func WithFeatureStore(fs features.Store) Option {
	return func(s *Service) {
		if fs != nil {
			s.featureStore = fs
		}
	}
}
