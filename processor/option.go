/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package processor

import (
	"time"

	"github.com/tochemey/cohort/internal/metric"
	"github.com/tochemey/cohort/log"
)

const (
	// DefaultRefreshTimeout bounds the lookup made to answer a refresh request
	DefaultRefreshTimeout = 5 * time.Second
	// DefaultConflictLedgerSize is the number of conflicts kept for inspection
	DefaultConflictLedgerSize = 256
)

type config struct {
	logger         log.Logger
	metric         *metric.CohortMetric
	publisher      Publisher
	store          ReferenceCopyStore
	locator        HomeLocator
	types          *TypeRegistry
	refreshTimeout time.Duration
	ledgerSize     int
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:         log.DiscardLogger,
		refreshTimeout: DefaultRefreshTimeout,
		ledgerSize:     DefaultConflictLedgerSize,
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *config)

// Apply applies the option
func (f OptionFunc) Apply(cfg *config) {
	f(cfg)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}

// WithMetric sets the instruments used to count processed events and conflicts
func WithMetric(m *metric.CohortMetric) Option {
	return OptionFunc(func(cfg *config) {
		cfg.metric = m
	})
}

// WithPublisher sets where error events and refresh answers are published
func WithPublisher(publisher Publisher) Option {
	return OptionFunc(func(cfg *config) {
		cfg.publisher = publisher
	})
}

// WithReferenceCopyStore sets the repository receiving the copies of
// instances homed by other members
func WithReferenceCopyStore(store ReferenceCopyStore) Option {
	return OptionFunc(func(cfg *config) {
		cfg.store = store
	})
}

// WithHomeLocator sets how the connector of a home repository is found
func WithHomeLocator(locator HomeLocator) Option {
	return OptionFunc(func(cfg *config) {
		cfg.locator = locator
	})
}

// WithTypeRegistry sets the types instances are checked against
func WithTypeRegistry(types *TypeRegistry) Option {
	return OptionFunc(func(cfg *config) {
		cfg.types = types
	})
}

// WithRefreshTimeout sets the time budget of refresh lookups
func WithRefreshTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		if timeout > 0 {
			cfg.refreshTimeout = timeout
		}
	})
}

// WithConflictLedgerSize sets the number of conflicts kept for inspection
func WithConflictLedgerSize(size int) Option {
	return OptionFunc(func(cfg *config) {
		if size > 0 {
			cfg.ledgerSize = size
		}
	})
}
