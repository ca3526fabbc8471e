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

package cohort

import (
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/processor"
	"github.com/tochemey/cohort/registry"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(m *Member)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(m *Member)

// Apply applies the options to the Member
func (f OptionFunc) Apply(m *Member) {
	f(m)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(m *Member) {
		m.logger = logger
	})
}

// WithMeterProvider sets the meter provider of the cohort instruments.
// The global otel meter provider is used otherwise.
func WithMeterProvider(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(m *Member) {
		m.meterProvider = provider
	})
}

// WithRegistryStore sets the store of the cohort registry. The member does
// not close a store it was given.
func WithRegistryStore(store registry.Store) Option {
	return OptionFunc(func(m *Member) {
		m.store = store
	})
}

// WithConnectorFactories registers the factories used to build connectors
// to the other members. A member announcing a connector type without a
// factory is rejected.
func WithConnectorFactories(factories ...connector.Factory) Option {
	return OptionFunc(func(m *Member) {
		for _, factory := range factories {
			m.broker.Register(factory)
		}
	})
}

// WithTypeRegistry sets the type registry, for instance one preloaded with
// the types of the local repository
func WithTypeRegistry(types *processor.TypeRegistry) Option {
	return OptionFunc(func(m *Member) {
		if types != nil {
			m.types = types
		}
	})
}
