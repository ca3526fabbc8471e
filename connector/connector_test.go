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

package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

type stubConnector struct {
	id           string
	release      chan struct{}
	started      chan struct{}
	disconnected *atomic.Int32
}

func newStubConnector(id string) *stubConnector {
	return &stubConnector{
		id:           id,
		release:      make(chan struct{}),
		started:      make(chan struct{}, 8),
		disconnected: atomic.NewInt32(0),
	}
}

func (s *stubConnector) MetadataCollectionID() string { return s.id }

func (s *stubConnector) MetadataCollection() (MetadataCollection, error) { return s, nil }

func (s *stubConnector) Disconnect(context.Context) error {
	s.disconnected.Inc()
	return nil
}

func (s *stubConnector) GetEntity(ctx context.Context, guid string) (*metadata.Entity, error) {
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &metadata.Entity{Instance: metadata.Instance{GUID: guid, HomeMetadataCollectionID: s.id}}, nil
}

func (s *stubConnector) GetRelationship(context.Context, string) (*metadata.Relationship, error) {
	return nil, errors.NewErrInstanceNotFound("R1")
}

func (s *stubConnector) FindEntities(context.Context, Query) ([]*metadata.Entity, error) {
	return nil, nil
}

func (s *stubConnector) FindRelationships(context.Context, Query) ([]*metadata.Relationship, error) {
	return nil, nil
}

func TestGuarded(t *testing.T) {
	t.Run("With in-flight call completing before disconnect", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()

		stub := newStubConnector("A")
		guarded := NewGuarded(stub)
		assert.Same(t, guarded, NewGuarded(guarded))
		assert.Equal(t, "A", guarded.MetadataCollectionID())

		collection, err := guarded.MetadataCollection()
		require.NoError(t, err)

		result := make(chan error, 1)
		go func() {
			_, err := collection.GetEntity(ctx, "G1")
			result <- err
		}()
		<-stub.started

		disconnected := make(chan error, 1)
		go func() { disconnected <- guarded.Disconnect(ctx) }()

		// disconnect waits for the in-flight call
		require.Eventually(t, guarded.Closed, time.Second, 5*time.Millisecond)
		assert.Zero(t, stub.disconnected.Load())

		close(stub.release)
		require.NoError(t, <-result)
		require.NoError(t, <-disconnected)
		assert.EqualValues(t, 1, stub.disconnected.Load())

		// new calls are rejected
		_, err = collection.GetEntity(ctx, "G1")
		require.ErrorIs(t, err, errors.ErrConnectorClosed)
		_, err = collection.FindEntities(ctx, Query{})
		require.ErrorIs(t, err, errors.ErrConnectorClosed)
		_, err = collection.FindRelationships(ctx, Query{})
		require.ErrorIs(t, err, errors.ErrConnectorClosed)
		_, err = collection.GetRelationship(ctx, "R1")
		require.ErrorIs(t, err, errors.ErrConnectorClosed)
		_, err = guarded.MetadataCollection()
		require.ErrorIs(t, err, errors.ErrConnectorClosed)

		// disconnect is idempotent
		require.NoError(t, guarded.Disconnect(ctx))
		assert.EqualValues(t, 1, stub.disconnected.Load())
	})
	t.Run("With passthrough calls", func(t *testing.T) {
		ctx := context.Background()
		stub := newStubConnector("A")
		guarded := NewGuarded(stub)

		collection, err := guarded.MetadataCollection()
		require.NoError(t, err)
		assert.Equal(t, "A", collection.MetadataCollectionID())

		_, err = collection.GetRelationship(ctx, "R1")
		require.ErrorIs(t, err, errors.ErrInstanceNotFound)
		require.NoError(t, guarded.Disconnect(ctx))
	})
}

func TestBroker(t *testing.T) {
	ctx := context.Background()
	factory := FactoryFunc{
		ConnectorType: "stub",
		Fn: func(_ context.Context, collectionID string, _ *metadata.Connection) (Connector, error) {
			return newStubConnector(collectionID), nil
		},
	}
	broker := NewBroker(factory)

	valid := &metadata.Connection{ConnectorType: "stub", Endpoint: metadata.Endpoint{Address: "127.0.0.1:9443"}}

	t.Run("With valid connection", func(t *testing.T) {
		require.NoError(t, broker.Validate("A", valid))

		conn, err := broker.Connect(ctx, "A", valid)
		require.NoError(t, err)
		assert.Equal(t, "A", conn.MetadataCollectionID())
		require.NoError(t, conn.Disconnect(ctx))
	})
	t.Run("With malformed connection", func(t *testing.T) {
		_, err := broker.Connect(ctx, "B", &metadata.Connection{ConnectorType: "stub"})
		require.ErrorIs(t, err, errors.ErrInvalidConnection)

		var connErr *errors.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "B", connErr.MetadataCollectionID)
	})
	t.Run("With unknown connector type", func(t *testing.T) {
		err := broker.Validate("C", &metadata.Connection{ConnectorType: "jdbc", Endpoint: metadata.Endpoint{Address: "127.0.0.1:5432"}})
		require.ErrorIs(t, err, errors.ErrUnknownConnectorType)
		require.ErrorIs(t, err, errors.ErrInvalidConnection)
	})
}

func TestQuery(t *testing.T) {
	inst := &metadata.Instance{
		GUID:       "G1",
		Type:       metadata.TypeDefSummary{Name: "Asset"},
		Properties: map[string]any{"owner": "finance", "zone": "a"},
	}

	assert.True(t, Query{}.Matches(inst))
	assert.True(t, Query{TypeName: "Asset", Properties: map[string]any{"owner": "finance"}}.Matches(inst))
	assert.False(t, Query{TypeName: "Schema"}.Matches(inst))
	assert.False(t, Query{Properties: map[string]any{"owner": "hr"}}.Matches(inst))
	assert.False(t, Query{Properties: map[string]any{"missing": "x"}}.Matches(inst))
	assert.False(t, Query{}.Matches(nil))
}
