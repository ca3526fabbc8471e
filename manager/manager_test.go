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

package manager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
	"github.com/tochemey/cohort/repository"
)

type notification struct {
	kind         string
	collectionID string
	connector    connector.Connector
}

type recordingConsumer struct {
	mu            sync.Mutex
	notifications []notification
}

func (c *recordingConsumer) SetLocalConnector(_ context.Context, collectionID string, conn connector.Connector) {
	c.record(notification{kind: "local", collectionID: collectionID, connector: conn})
}

func (c *recordingConsumer) AddRemoteConnector(_ context.Context, collectionID string, conn connector.Connector) {
	c.record(notification{kind: "add", collectionID: collectionID, connector: conn})
}

func (c *recordingConsumer) RemoveRemoteConnector(_ context.Context, collectionID string) {
	c.record(notification{kind: "remove", collectionID: collectionID})
}

func (c *recordingConsumer) record(n notification) {
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()
}

func (c *recordingConsumer) snapshot() []notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification(nil), c.notifications...)
}

func (c *recordingConsumer) trace() []string {
	var out []string
	for _, n := range c.snapshot() {
		out = append(out, fmt.Sprintf("%s:%s", n.kind, n.collectionID))
	}
	return out
}

type cohortFixture struct {
	directory *repository.Directory
	broker    *connector.Broker
}

func newFixture(ids ...string) *cohortFixture {
	directory := repository.NewDirectory()
	for _, id := range ids {
		directory.Add(address(id), repository.NewMemory(id))
	}
	return &cohortFixture{directory: directory, broker: connector.NewBroker(directory.Factory())}
}

func address(id string) string {
	return fmt.Sprintf("%s.cohort.local:9443", id)
}

func connection(id string) *metadata.Connection {
	return &metadata.Connection{
		QualifiedName: id,
		ConnectorType: repository.ConnectorType,
		Endpoint:      metadata.Endpoint{Address: address(id)},
	}
}

// trackedConnector records whether it was disconnected
type trackedConnector struct {
	connector.Connector
	disconnected *atomic.Bool
}

func (c *trackedConnector) Disconnect(ctx context.Context) error {
	c.disconnected.Store(true)
	return c.Connector.Disconnect(ctx)
}

// trackingFactory wraps the connectors built by a factory and can hold the
// connection to one member until it is released
type trackingFactory struct {
	connector.Factory
	slowMember string
	connecting chan struct{}
	released   chan struct{}

	mu    sync.Mutex
	built []*trackedConnector
}

func newTrackingFactory(factory connector.Factory, slowMember string) *trackingFactory {
	return &trackingFactory{
		Factory:    factory,
		slowMember: slowMember,
		connecting: make(chan struct{}, 1),
		released:   make(chan struct{}),
	}
}

func (f *trackingFactory) Connect(ctx context.Context, collectionID string, conn *metadata.Connection) (connector.Connector, error) {
	if collectionID == f.slowMember {
		f.connecting <- struct{}{}
		<-f.released
	}

	inner, err := f.Factory.Connect(ctx, collectionID, conn)
	if err != nil {
		return nil, err
	}

	tracked := &trackedConnector{Connector: inner, disconnected: atomic.NewBool(false)}
	f.mu.Lock()
	f.built = append(f.built, tracked)
	f.mu.Unlock()
	return tracked, nil
}

func (f *trackingFactory) connectors() []*trackedConnector {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*trackedConnector(nil), f.built...)
}

// blockingConsumer holds its first remote connector until its context ends
type blockingConsumer struct {
	recordingConsumer
	entered chan struct{}
}

func (c *blockingConsumer) AddRemoteConnector(ctx context.Context, collectionID string, conn connector.Connector) {
	c.recordingConsumer.AddRemoteConnector(ctx, collectionID, conn)
	if len(c.snapshot()) == 1 {
		close(c.entered)
		<-ctx.Done()
	}
}

func TestManager(t *testing.T) {
	t.Run("With topology notifications", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("L", "A", "B")
		mgr := New(fixture.broker, WithLogger(log.DiscardLogger))

		early := new(recordingConsumer)
		mgr.Register(ctx, early)

		local, _ := fixture.directory.Lookup(address("L"))
		require.NoError(t, mgr.SetLocalConnector("L", local.Connector()))
		require.ErrorIs(t, mgr.SetLocalConnector("L", local.Connector()), errors.ErrLocalConnectorAlreadySet)

		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		require.NoError(t, mgr.AddRemoteConnector(ctx, "B", connection("B")))
		assert.Equal(t, []string{"A", "B"}, mgr.RemoteMembers())

		require.Eventually(t, func() bool { return len(early.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"local:L", "add:A", "add:B"}, early.trace())

		// a late consumer receives the current topology, local first
		late := new(recordingConsumer)
		lateID := mgr.Register(ctx, late)
		require.Eventually(t, func() bool { return len(late.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"local:L", "add:A", "add:B"}, late.trace())

		// every consumer owns its remote connectors, the local one is shared
		assert.Same(t, early.snapshot()[0].connector, late.snapshot()[0].connector)
		assert.NotSame(t, early.snapshot()[1].connector, late.snapshot()[1].connector)

		mgr.RemoveRemoteConnector(ctx, "A")
		mgr.RemoveRemoteConnector(ctx, "unknown")
		assert.Equal(t, []string{"B"}, mgr.RemoteMembers())

		require.Eventually(t, func() bool { return len(early.snapshot()) == 4 && len(late.snapshot()) == 4 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, "remove:A", early.trace()[3])
		assert.Equal(t, "remove:A", late.trace()[3])

		// unregistering one consumer does not affect the other
		require.NoError(t, mgr.Unregister(lateID))
		require.ErrorIs(t, mgr.Unregister(lateID), errors.ErrConsumerNotFound)

		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		require.Eventually(t, func() bool { return len(early.snapshot()) == 5 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, "add:A", early.trace()[4])
		assert.Len(t, late.snapshot(), 4)

		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With malformed connection", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("A")
		mgr := New(fixture.broker, WithLogger(log.DiscardLogger))

		consumer := new(recordingConsumer)
		mgr.Register(ctx, consumer)

		err := mgr.AddRemoteConnector(ctx, "A", &metadata.Connection{ConnectorType: repository.ConnectorType})
		require.ErrorIs(t, err, errors.ErrInvalidConnection)
		assert.Empty(t, mgr.RemoteMembers())

		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, consumer.snapshot())
		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With unreachable member", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture()
		mgr := New(fixture.broker, WithLogger(log.DiscardLogger))
		mgr.Register(ctx, new(recordingConsumer))

		// well-formed but nobody listens at the address
		err := mgr.AddRemoteConnector(ctx, "A", connection("A"))
		var connErr *errors.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, []string{"A"}, mgr.RemoteMembers())
		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With connectors pending when a consumer unregisters", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("A", "B")
		factory := newTrackingFactory(fixture.directory.Factory(), "")
		mgr := New(connector.NewBroker(factory), WithLogger(log.DiscardLogger))

		consumer := &blockingConsumer{entered: make(chan struct{})}
		id := mgr.Register(ctx, consumer)

		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		<-consumer.entered
		require.NoError(t, mgr.AddRemoteConnector(ctx, "B", connection("B")))

		require.NoError(t, mgr.Unregister(id))

		// A was delivered and belongs to the consumer, B never reached it
		assert.Equal(t, []string{"add:A"}, consumer.trace())
		built := factory.connectors()
		require.Len(t, built, 2)
		assert.False(t, built[0].disconnected.Load())
		assert.True(t, built[1].disconnected.Load())

		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With a slow member connection", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("A", "S")
		factory := newTrackingFactory(fixture.directory.Factory(), "S")
		mgr := New(connector.NewBroker(factory), WithLogger(log.DiscardLogger))

		consumer := new(recordingConsumer)
		mgr.Register(ctx, consumer)

		slow := make(chan error, 1)
		go func() { slow <- mgr.AddRemoteConnector(ctx, "S", connection("S")) }()
		<-factory.connecting

		// other topology operations proceed while S is being connected
		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		assert.Equal(t, []string{"S", "A"}, mgr.RemoteMembers())
		require.Eventually(t, func() bool { return len(consumer.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"add:A"}, consumer.trace())

		close(factory.released)
		require.NoError(t, <-slow)
		require.Eventually(t, func() bool { return len(consumer.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"add:A", "add:S"}, consumer.trace())

		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With a member removed while it is being connected", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("S")
		factory := newTrackingFactory(fixture.directory.Factory(), "S")
		mgr := New(connector.NewBroker(factory), WithLogger(log.DiscardLogger))

		consumer := new(recordingConsumer)
		mgr.Register(ctx, consumer)

		slow := make(chan error, 1)
		go func() { slow <- mgr.AddRemoteConnector(ctx, "S", connection("S")) }()
		<-factory.connecting

		mgr.RemoveRemoteConnector(ctx, "S")
		close(factory.released)
		require.NoError(t, <-slow)

		require.Eventually(t, func() bool { return len(consumer.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"remove:S"}, consumer.trace())
		built := factory.connectors()
		require.Len(t, built, 1)
		assert.True(t, built[0].disconnected.Load())

		require.NoError(t, mgr.Disconnect(ctx))
	})
	t.Run("With re-registration of a known member", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newFixture("A")
		mgr := New(fixture.broker, WithLogger(log.DiscardLogger))

		consumer := new(recordingConsumer)
		mgr.Register(ctx, consumer)

		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		require.NoError(t, mgr.AddRemoteConnector(ctx, "A", connection("A")))
		assert.Equal(t, []string{"A"}, mgr.RemoteMembers())

		require.Eventually(t, func() bool { return len(consumer.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"add:A", "remove:A", "add:A"}, consumer.trace())
		require.NoError(t, mgr.Disconnect(ctx))
	})
}
