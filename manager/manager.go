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

// Package manager holds the live connectors of the cohort members and keeps
// the connector consumers informed of topology changes.
package manager

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/eventstream"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
)

const topologyTopic = "cohort.topology"

type remoteMember struct {
	collectionID string
	connection   *metadata.Connection
	// generation is the topology version the member was recorded at
	generation uint64
}

// built is a connector made for one consumer outside the lock
type built struct {
	reg          *registration
	collectionID string
	connector    *connector.Guarded
}

type registration struct {
	id         string
	consumer   Consumer
	subscriber eventstream.Subscriber
	cancel     context.CancelFunc
	done       chan struct{}
}

// Manager is the single source of truth for the connectors of the cohort.
//
// Each consumer receives its own connector for every remote member so that
// it can disconnect it independently. The local connector is shared.
type Manager struct {
	broker *connector.Broker
	stream eventstream.Stream
	logger log.Logger

	mu            sync.Mutex
	localID       string
	local         connector.Connector
	remotes       []remoteMember
	version       uint64
	registrations map[string]*registration
}

// New creates a Manager that builds connectors through the broker
func New(broker *connector.Broker, opts ...Option) *Manager {
	m := &Manager{
		broker:        broker,
		stream:        eventstream.New(),
		logger:        log.DefaultLogger,
		registrations: make(map[string]*registration),
	}
	for _, opt := range opts {
		opt.Apply(m)
	}
	m.logger = log.Component(m.logger, "connector.manager")
	return m
}

// Register adds a consumer and returns its id. The consumer first receives
// the current topology: the local connector, when set, then one connector per
// remote member in registration order.
func (m *Manager) Register(ctx context.Context, consumer Consumer) string {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	reg := &registration{
		id:         uuid.NewString(),
		consumer:   consumer,
		subscriber: m.stream.AddSubscriber(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	// connectors are built without the lock; the snapshot is taken again
	// when the topology changed in the meantime
	for {
		m.mu.Lock()
		version := m.version
		remotes := slices.Clone(m.remotes)
		m.mu.Unlock()

		conns := make([]built, 0, len(remotes))
		for _, member := range remotes {
			conn, err := m.broker.Connect(ctx, member.collectionID, member.connection)
			if err != nil {
				m.logger.Errorf("failed to connect consumer=(%s) to member=(%s): %v", reg.id, member.collectionID, err)
				continue
			}
			conns = append(conns, built{reg: reg, collectionID: member.collectionID, connector: conn})
		}

		m.mu.Lock()
		if version != m.version {
			m.mu.Unlock()
			m.release(conns)
			continue
		}

		m.stream.Subscribe(reg.subscriber, topologyTopic)
		m.registrations[reg.id] = reg
		if m.local != nil {
			m.stream.Send(reg.subscriber, topologyTopic, &localConnectorSet{collectionID: m.localID, connector: m.local})
		}
		for _, conn := range conns {
			m.stream.Send(reg.subscriber, topologyTopic, &remoteConnectorAdded{collectionID: conn.collectionID, connector: conn.connector})
		}
		m.mu.Unlock()
		break
	}

	go m.deliver(ctx, reg)
	m.logger.Debugf("registered connector consumer=(%s)", reg.id)
	return reg.id
}

// Unregister removes a consumer. Other consumers are not affected.
func (m *Manager) Unregister(consumerID string) error {
	m.mu.Lock()
	reg, ok := m.registrations[consumerID]
	delete(m.registrations, consumerID)
	m.mu.Unlock()

	if !ok {
		return errors.ErrConsumerNotFound
	}

	reg.cancel()
	m.stream.Unsubscribe(reg.subscriber, topologyTopic)
	<-reg.done

	// connectors handed over but never delivered still belong to the manager
	var pending []built
	for msg := range reg.subscriber.Iterator() {
		if added, ok := msg.Payload().(*remoteConnectorAdded); ok {
			if guarded, ok := added.connector.(*connector.Guarded); ok {
				pending = append(pending, built{reg: reg, collectionID: added.collectionID, connector: guarded})
			}
		}
	}
	m.release(pending)

	m.stream.RemoveSubscriber(reg.subscriber)
	m.logger.Debugf("unregistered connector consumer=(%s)", consumerID)
	return nil
}

// SetLocalConnector registers the connector of the local repository. It can only be called once.
func (m *Manager) SetLocalConnector(collectionID string, conn connector.Connector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.local != nil {
		return errors.ErrLocalConnectorAlreadySet
	}

	m.localID = collectionID
	m.local = conn
	m.stream.Publish(topologyTopic, &localConnectorSet{collectionID: collectionID, connector: conn})
	m.logger.Infof("local connector set for metadataCollection=(%s)", collectionID)
	return nil
}

// LocalConnector returns the local connector and its collection id, if set
func (m *Manager) LocalConnector() (string, connector.Connector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localID, m.local, m.local != nil
}

// Validate reports whether a connector could be built for the given member
// without connecting to it
func (m *Manager) Validate(collectionID string, conn *metadata.Connection) error {
	return m.broker.Validate(collectionID, conn)
}

// AddRemoteConnector records a remote member and hands every consumer a
// fresh connector to it. A malformed connection is rejected before anything
// changes. A member that is already known is replaced.
//
// Connection failures for individual consumers are returned, combined, after
// the member has been recorded.
func (m *Manager) AddRemoteConnector(ctx context.Context, collectionID string, conn *metadata.Connection) error {
	if err := m.broker.Validate(collectionID, conn); err != nil {
		return err
	}

	m.mu.Lock()
	if idx := m.indexOf(collectionID); idx >= 0 {
		m.remotes = slices.Delete(m.remotes, idx, idx+1)
		m.stream.Publish(topologyTopic, &remoteConnectorRemoved{collectionID: collectionID})
	}
	m.version++
	generation := m.version
	m.remotes = append(m.remotes, remoteMember{collectionID: collectionID, connection: conn.Clone(), generation: generation})

	regs := make([]*registration, 0, len(m.registrations))
	for _, reg := range m.registrations {
		regs = append(regs, reg)
	}
	m.mu.Unlock()

	var err error
	conns := make([]built, 0, len(regs))
	for _, reg := range regs {
		guarded, connErr := m.broker.Connect(ctx, collectionID, conn)
		if connErr != nil {
			m.logger.Errorf("failed to connect consumer=(%s) to member=(%s): %v", reg.id, collectionID, connErr)
			err = multierr.Append(err, connErr)
			continue
		}
		conns = append(conns, built{reg: reg, collectionID: collectionID, connector: guarded})
	}

	// hand over only to consumers still registered, and only while the
	// member has not been replaced or removed
	var stale []built
	m.mu.Lock()
	idx := m.indexOf(collectionID)
	current := idx >= 0 && m.remotes[idx].generation == generation
	for _, conn := range conns {
		if !current || m.registrations[conn.reg.id] != conn.reg {
			stale = append(stale, conn)
			continue
		}
		m.stream.Send(conn.reg.subscriber, topologyTopic, &remoteConnectorAdded{collectionID: collectionID, connector: conn.connector})
	}
	m.mu.Unlock()
	m.release(stale)

	m.logger.Infof("remote member=(%s) added", collectionID)
	return err
}

// RemoveRemoteConnector forgets a remote member and tells every consumer
func (m *Manager) RemoveRemoteConnector(_ context.Context, collectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(collectionID)
	if idx < 0 {
		return
	}

	m.remotes = slices.Delete(m.remotes, idx, idx+1)
	m.version++
	m.stream.Publish(topologyTopic, &remoteConnectorRemoved{collectionID: collectionID})
	m.logger.Infof("remote member=(%s) removed", collectionID)
}

// RemoteMembers returns the ids of the remote members in registration order
func (m *Manager) RemoteMembers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.remotes))
	for _, member := range m.remotes {
		ids = append(ids, member.collectionID)
	}
	return ids
}

// Disconnect unregisters every consumer and forgets the topology
func (m *Manager) Disconnect(context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.registrations))
	for id := range m.registrations {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		// a concurrent Unregister may win the race
		_ = m.Unregister(id)
	}

	m.mu.Lock()
	m.remotes = nil
	m.version++
	m.local = nil
	m.localID = ""
	m.mu.Unlock()

	m.stream.Close()
	return nil
}

// release disconnects connectors no consumer will receive
func (m *Manager) release(conns []built) {
	for _, conn := range conns {
		if err := conn.connector.Disconnect(context.Background()); err != nil {
			m.logger.Warnf("failed to release connector of consumer=(%s) to member=(%s): %v", conn.reg.id, conn.collectionID, err)
		}
	}
}

// indexOf must be called with the lock held
func (m *Manager) indexOf(collectionID string) int {
	return slices.IndexFunc(m.remotes, func(member remoteMember) bool {
		return member.collectionID == collectionID
	})
}

func (m *Manager) deliver(ctx context.Context, reg *registration) {
	defer close(reg.done)
	for ctx.Err() == nil {
		msg, ok := reg.subscriber.Next(ctx)
		if !ok {
			return
		}

		switch notification := msg.Payload().(type) {
		case *localConnectorSet:
			reg.consumer.SetLocalConnector(ctx, notification.collectionID, notification.connector)
		case *remoteConnectorAdded:
			reg.consumer.AddRemoteConnector(ctx, notification.collectionID, notification.connector)
		case *remoteConnectorRemoved:
			reg.consumer.RemoveRemoteConnector(ctx, notification.collectionID)
		}
	}
}
