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
	"context"
	stderrors "errors"
	"sort"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

// Response is the answer of one member to a federated call
type Response[T any] struct {
	MetadataCollectionID string
	Value                T
}

// Failure records a member that could not answer a federated call
type Failure struct {
	MetadataCollectionID string
	Err                  error
}

// Result gathers the answers of a federated call in member order:
// the local member first, then the remote members in the order they joined.
type Result[T any] struct {
	Responses []Response[T]
	Failures  []Failure
}

// Err combines the member failures. It is nil when every member answered.
func (r *Result[T]) Err() error {
	var err error
	for _, failure := range r.Failures {
		err = multierr.Append(err, failure.Err)
	}
	return err
}

// Merged is the outcome of a federated search. Items are sorted by guid.
type Merged[T any] struct {
	Items    []T
	Failures []Failure
}

// MemberCall is the work done against one member during a fan-out
type MemberCall[T any] func(ctx context.Context, collection connector.MetadataCollection) (T, error)

// FanOut calls every member of the cohort concurrently. Each member gets its
// own time budget; a member that does not answer in time is recorded as a
// failure carrying errors.ErrMemberTimeout. The call fails only when the
// cohort is empty or no member answered.
func FanOut[T any](ctx context.Context, c *Connector, call MemberCall[T]) (*Result[T], error) {
	targets, err := c.cohortConnectors(c.snapshot.Load())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	values := make([]T, len(targets))
	failures := make([]error, len(targets))

	group := new(errgroup.Group)
	group.SetLimit(c.maxConcurrency)
	for i, target := range targets {
		group.Go(func() error {
			values[i], failures[i] = callMember(ctx, c.memberTimeout, target, call)
			return nil
		})
	}
	// member failures are collected, never returned to the group
	_ = group.Wait()

	result := new(Result[T])
	for i, target := range targets {
		if failures[i] != nil {
			c.logger.Debugf("member=(%s) failed a federated call: %v", target.MetadataCollectionID, failures[i])
			result.Failures = append(result.Failures, Failure{MetadataCollectionID: target.MetadataCollectionID, Err: failures[i]})
			continue
		}
		result.Responses = append(result.Responses, Response[T]{MetadataCollectionID: target.MetadataCollectionID, Value: values[i]})
	}

	c.metric.RecordFanOut(ctx, c.accessService, time.Since(start), len(result.Failures))
	if len(result.Responses) == 0 {
		return result, errors.NewErrNoMemberResponded(c.accessService, result.Err())
	}
	return result, nil
}

// GetEntity returns the most recent version of an entity held by any member
func (c *Connector) GetEntity(ctx context.Context, guid string) (*metadata.Entity, error) {
	result, err := FanOut(ctx, c, func(ctx context.Context, collection connector.MetadataCollection) (*metadata.Entity, error) {
		return collection.GetEntity(ctx, guid)
	})
	if err != nil {
		return nil, notFound(guid, result, err)
	}

	var latest *metadata.Entity
	for _, response := range result.Responses {
		entity := c.ProcessRetrievedEntity(ctx, response.MetadataCollectionID, response.Value)
		if entity != nil && (latest == nil || entity.Version > latest.Version) {
			latest = entity
		}
	}

	if latest == nil {
		return nil, errors.NewErrInstanceNotFound(guid)
	}
	return latest, nil
}

// GetRelationship returns the most recent version of a relationship held by any member
func (c *Connector) GetRelationship(ctx context.Context, guid string) (*metadata.Relationship, error) {
	result, err := FanOut(ctx, c, func(ctx context.Context, collection connector.MetadataCollection) (*metadata.Relationship, error) {
		return collection.GetRelationship(ctx, guid)
	})
	if err != nil {
		return nil, notFound(guid, result, err)
	}

	var latest *metadata.Relationship
	for _, response := range result.Responses {
		rel := c.ProcessRetrievedRelationship(ctx, response.MetadataCollectionID, response.Value)
		if rel != nil && (latest == nil || rel.Version > latest.Version) {
			latest = rel
		}
	}

	if latest == nil {
		return nil, errors.NewErrInstanceNotFound(guid)
	}
	return latest, nil
}

// FindEntities searches every member. Copies of the same entity are merged,
// keeping the highest version.
func (c *Connector) FindEntities(ctx context.Context, query connector.Query) (*Merged[*metadata.Entity], error) {
	result, err := FanOut(ctx, c, func(ctx context.Context, collection connector.MetadataCollection) ([]*metadata.Entity, error) {
		return collection.FindEntities(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	batches := make([][]*metadata.Entity, 0, len(result.Responses))
	for _, response := range result.Responses {
		batches = append(batches, c.ProcessRetrievedEntities(ctx, response.MetadataCollectionID, response.Value))
	}

	items := merge(batches, func(entity *metadata.Entity) *metadata.Instance { return &entity.Instance }, query.Limit)
	return &Merged[*metadata.Entity]{Items: items, Failures: result.Failures}, nil
}

// FindRelationships searches every member. Copies of the same relationship
// are merged, keeping the highest version.
func (c *Connector) FindRelationships(ctx context.Context, query connector.Query) (*Merged[*metadata.Relationship], error) {
	result, err := FanOut(ctx, c, func(ctx context.Context, collection connector.MetadataCollection) ([]*metadata.Relationship, error) {
		return collection.FindRelationships(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	batches := make([][]*metadata.Relationship, 0, len(result.Responses))
	for _, response := range result.Responses {
		batches = append(batches, c.ProcessRetrievedRelationships(ctx, response.MetadataCollectionID, response.Value))
	}

	items := merge(batches, func(rel *metadata.Relationship) *metadata.Instance { return &rel.Instance }, query.Limit)
	return &Merged[*metadata.Relationship]{Items: items, Failures: result.Failures}, nil
}

func callMember[T any](ctx context.Context, timeout time.Duration, target CohortConnector, call MemberCall[T]) (T, error) {
	type answer struct {
		value T
		err   error
	}

	var zero T
	collection, err := target.Connector.MetadataCollection()
	if err != nil {
		return zero, err
	}

	memberCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answers := make(chan answer, 1)
	go func() {
		value, err := call(memberCtx, collection)
		answers <- answer{value: value, err: err}
	}()

	select {
	case a := <-answers:
		if a.err != nil && stderrors.Is(a.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, errors.NewErrMemberTimeout(target.MetadataCollectionID, a.err)
		}
		return a.value, a.err
	case <-memberCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, errors.NewErrMemberTimeout(target.MetadataCollectionID, memberCtx.Err())
	}
}

// notFound turns a fan-out where every member missed the instance into
// errors.ErrInstanceNotFound
func notFound[T any](guid string, result *Result[T], err error) error {
	if result == nil || len(result.Failures) == 0 {
		return err
	}

	for _, failure := range result.Failures {
		if !stderrors.Is(failure.Err, errors.ErrInstanceNotFound) {
			return err
		}
	}
	return errors.NewErrInstanceNotFound(guid)
}

func merge[T any](batches [][]T, instanceOf func(T) *metadata.Instance, limit int) []T {
	latest := make(map[string]T)
	for _, batch := range batches {
		for _, item := range batch {
			guid := instanceOf(item).GUID
			current, ok := latest[guid]
			if !ok || instanceOf(item).Version > instanceOf(current).Version {
				latest[guid] = item
			}
		}
	}

	out := make([]T, 0, len(latest))
	for _, item := range latest {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return instanceOf(out[i]).GUID < instanceOf(out[j]).GUID })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
