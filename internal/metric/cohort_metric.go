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

package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CohortMetric groups the instruments a cohort member reports.
//
// Instruments:
//   - cohort.events.count            (Int64Counter, attrs: category, outcome)
//   - cohort.conflicts.count         (Int64Counter, attrs: kind)
//   - cohort.fanout.duration         (Float64Histogram, unit: ms, attrs: access_service)
//   - cohort.fanout.failures.count   (Int64Counter, attrs: access_service)
//   - cohort.members.count           (Int64ObservableGauge)
type CohortMetric struct {
	events          metric.Int64Counter
	conflicts       metric.Int64Counter
	fanOutDuration  metric.Float64Histogram
	fanOutFailures  metric.Int64Counter
	membersObserved metric.Int64ObservableGauge
}

// NewCohortMetric creates the cohort instruments. members is sampled on
// every collection to report the number of registered cohort members and may be nil.
func NewCohortMetric(meter metric.Meter, members func() int64) (*CohortMetric, error) {
	m := new(CohortMetric)
	var err error

	if m.events, err = meter.Int64Counter(
		"cohort.events.count",
		metric.WithDescription("Total number of cohort events processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create events instrument, %w", err)
	}

	if m.conflicts, err = meter.Int64Counter(
		"cohort.conflicts.count",
		metric.WithDescription("Total number of conflicts detected"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conflicts instrument, %w", err)
	}

	if m.fanOutDuration, err = meter.Float64Histogram(
		"cohort.fanout.duration",
		metric.WithDescription("The latency of federated queries in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fanOutDuration instrument, %w", err)
	}

	if m.fanOutFailures, err = meter.Int64Counter(
		"cohort.fanout.failures.count",
		metric.WithDescription("Total number of members that failed a federated query"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fanOutFailures instrument, %w", err)
	}

	if members != nil {
		if m.membersObserved, err = meter.Int64ObservableGauge(
			"cohort.members.count",
			metric.WithDescription("Number of registered cohort members"),
			metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
				observer.Observe(members())
				return nil
			}),
		); err != nil {
			return nil, fmt.Errorf("failed to create members instrument, %w", err)
		}
	}

	return m, nil
}

// RecordEvent counts a processed event. Safe on a nil receiver.
func (x *CohortMetric) RecordEvent(ctx context.Context, category, outcome string) {
	if x == nil {
		return
	}
	x.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("outcome", outcome),
	))
}

// RecordConflict counts a detected conflict. Safe on a nil receiver.
func (x *CohortMetric) RecordConflict(ctx context.Context, kind string) {
	if x == nil {
		return
	}
	x.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordFanOut records a federated query. Safe on a nil receiver.
func (x *CohortMetric) RecordFanOut(ctx context.Context, accessService string, elapsed time.Duration, failures int) {
	if x == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("access_service", accessService))
	x.fanOutDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	if failures > 0 {
		x.fanOutFailures.Add(ctx, int64(failures), attrs)
	}
}
