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

package federation

import (
	"time"

	"github.com/tochemey/cohort/internal/metric"
	"github.com/tochemey/cohort/log"
)

const (
	// DefaultMemberTimeout bounds the time a single member has to answer a federated call
	DefaultMemberTimeout = 5 * time.Second
	// DefaultMaxConcurrency bounds the number of members queried at once
	DefaultMaxConcurrency = 32
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(c *Connector)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(c *Connector)

// Apply applies the option
func (f OptionFunc) Apply(c *Connector) {
	f(c)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Connector) {
		c.logger = logger
	})
}

// WithSink sets where retrieved instances are forwarded
func WithSink(sink RetrievalSink) Option {
	return OptionFunc(func(c *Connector) {
		c.sink = sink
	})
}

// WithMemberTimeout sets the time budget of each member in a federated call
func WithMemberTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Connector) {
		if timeout > 0 {
			c.memberTimeout = timeout
		}
	})
}

// WithMaxConcurrency sets the number of members queried at once
func WithMaxConcurrency(limit int) Option {
	return OptionFunc(func(c *Connector) {
		if limit > 0 {
			c.maxConcurrency = limit
		}
	})
}

// WithAggregateID sets the collection id stamped on retrieved instances
// that have no home. A random id is used otherwise.
func WithAggregateID(collectionID string) Option {
	return OptionFunc(func(c *Connector) {
		if collectionID != "" {
			c.aggregateID = collectionID
		}
	})
}

// WithMetric sets the instruments used to record federated calls
func WithMetric(m *metric.CohortMetric) Option {
	return OptionFunc(func(c *Connector) {
		c.metric = m
	})
}
