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

// Package federation presents the members of a cohort as one logical
// repository. Reads fan out to every member and writes are routed to the
// home repository of the instance.
package federation

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/internal/metric"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/manager"
	"github.com/tochemey/cohort/metadata"
)

// ConnectorManager is the source of the cohort topology. It is implemented by *manager.Manager.
type ConnectorManager interface {
	Register(ctx context.Context, consumer manager.Consumer) string
	Unregister(consumerID string) error
}

// RetrievalSink receives a copy of every instance read through the
// federated connector. It is a cache hint: the sink may ignore it.
type RetrievalSink interface {
	ProcessRetrievedEntity(ctx context.Context, sourceCollectionID string, entity *metadata.Entity)
	ProcessRetrievedRelationship(ctx context.Context, sourceCollectionID string, rel *metadata.Relationship)
}

// CohortConnector pairs a member with the connector used to reach it
type CohortConnector struct {
	MetadataCollectionID string
	Connector            connector.Connector
}

// DisconnectFailure reports a remote connector that failed to disconnect
type DisconnectFailure struct {
	MetadataCollectionID string
	Err                  error
}

// members is an immutable view of the cohort. It is replaced, never mutated.
type members struct {
	localID string
	local   connector.Connector
	remotes []CohortConnector
}

func (m *members) size() int {
	size := len(m.remotes)
	if m.local != nil {
		size++
	}
	return size
}

// Connector is the federated connector of one access service.
//
// The membership view is a copy-on-write snapshot: a fan-out works on the
// snapshot it loaded even when members join or leave while it runs. Remote
// connectors are owned by the Connector and disconnected when their member
// leaves. The local connector is shared and never disconnected.
type Connector struct {
	accessService  string
	aggregateID    string
	manager        ConnectorManager
	sink           RetrievalSink
	logger         log.Logger
	metric         *metric.CohortMetric
	memberTimeout  time.Duration
	maxConcurrency int

	// mu serializes writers of the snapshot and the lifecycle
	mu         sync.Mutex
	snapshot   atomic.Pointer[members]
	consumerID string
	started    bool
}

// enforce compilation error
var _ manager.Consumer = (*Connector)(nil)

// New creates a federated connector for the given access service.
// The connector observes the topology once started.
func New(accessService string, connectorManager ConnectorManager, opts ...Option) *Connector {
	c := &Connector{
		accessService:  accessService,
		aggregateID:    uuid.NewString(),
		manager:        connectorManager,
		logger:         log.DiscardLogger,
		memberTimeout:  DefaultMemberTimeout,
		maxConcurrency: DefaultMaxConcurrency,
	}

	for _, opt := range opts {
		opt.Apply(c)
	}

	c.logger = log.Component(c.logger, "federation").With("accessService", accessService)
	c.snapshot.Store(new(members))
	return c
}

// AccessService returns the name of the access service using the connector
func (c *Connector) AccessService() string {
	return c.accessService
}

// AggregateID returns the collection id stamped on ownerless instances
func (c *Connector) AggregateID() string {
	return c.aggregateID
}

// Start registers the connector with the connector manager
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manager == nil {
		return errors.NewConfigurationError(errors.ErrCohortNotConnected)
	}

	if c.started {
		return errors.ErrAlreadyStarted
	}

	c.started = true
	c.consumerID = c.manager.Register(ctx, c)
	c.logger.Infof("federated connector activated for accessService=(%s)", c.accessService)
	return nil
}

// Disconnect unregisters the connector from the connector manager and
// disconnects every remote connector. A connector that fails to disconnect
// does not prevent the others from being disconnected; its failure is
// reported in the returned list.
func (c *Connector) Disconnect(ctx context.Context) []DisconnectFailure {
	c.mu.Lock()
	started := c.started
	consumerID := c.consumerID
	c.started = false
	c.consumerID = ""
	c.mu.Unlock()

	if started {
		// notifications stop once Unregister returns
		if err := c.manager.Unregister(consumerID); err != nil {
			c.logger.Warnf("failed to unregister from the connector manager: %v", err)
		}
	}

	c.mu.Lock()
	previous := c.snapshot.Swap(new(members))
	c.mu.Unlock()

	var failures []DisconnectFailure
	for _, remote := range previous.remotes {
		if err := remote.Connector.Disconnect(ctx); err != nil {
			c.logger.Errorf("failed to disconnect member=(%s): %v", remote.MetadataCollectionID, err)
			failures = append(failures, DisconnectFailure{MetadataCollectionID: remote.MetadataCollectionID, Err: err})
		}
	}

	c.logger.Infof("federated connector for accessService=(%s) disconnected", c.accessService)
	return failures
}

// SetLocalConnector implements manager.Consumer
func (c *Connector) SetLocalConnector(_ context.Context, collectionID string, conn connector.Connector) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot.Load()
	c.snapshot.Store(&members{localID: collectionID, local: conn, remotes: current.remotes})
	c.logger.Debugf("local member=(%s) set", collectionID)
}

// AddRemoteConnector implements manager.Consumer. A member that is already
// known gets its connector replaced and the previous one disconnected.
func (c *Connector) AddRemoteConnector(ctx context.Context, collectionID string, conn connector.Connector) {
	c.mu.Lock()
	current := c.snapshot.Load()
	remotes := slices.Clone(current.remotes)

	var replaced connector.Connector
	if idx := indexOf(remotes, collectionID); idx >= 0 {
		replaced = remotes[idx].Connector
		remotes = slices.Delete(remotes, idx, idx+1)
	}
	remotes = append(remotes, CohortConnector{MetadataCollectionID: collectionID, Connector: conn})
	c.snapshot.Store(&members{localID: current.localID, local: current.local, remotes: remotes})
	c.mu.Unlock()

	c.logger.Debugf("remote member=(%s) added", collectionID)
	if replaced != nil {
		c.release(ctx, collectionID, replaced)
	}
}

// RemoveRemoteConnector implements manager.Consumer
func (c *Connector) RemoveRemoteConnector(ctx context.Context, collectionID string) {
	c.mu.Lock()
	current := c.snapshot.Load()
	idx := indexOf(current.remotes, collectionID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}

	removed := current.remotes[idx].Connector
	remotes := slices.Delete(slices.Clone(current.remotes), idx, idx+1)
	c.snapshot.Store(&members{localID: current.localID, local: current.local, remotes: remotes})
	c.mu.Unlock()

	c.logger.Debugf("remote member=(%s) removed", collectionID)
	c.release(ctx, collectionID, removed)
}

// HomeConnector returns the connector of the repository that homes the
// instance. ok is false when no live member homes it. An error is returned
// only for an instance without a home collection id.
func (c *Connector) HomeConnector(instance *metadata.Instance) (home CohortConnector, ok bool, err error) {
	if instance == nil {
		return CohortConnector{}, false, errors.ErrInvalidInstance
	}

	if instance.HomeMetadataCollectionID == "" {
		return CohortConnector{}, false, fmt.Errorf("guid=(%s) %w", instance.GUID, errors.ErrNoHomeMetadataCollection)
	}

	home, ok = c.lookup(c.snapshot.Load(), instance.HomeMetadataCollectionID)
	return home, ok, nil
}

// ConnectorFor returns the connector of the given member
func (c *Connector) ConnectorFor(collectionID string) (CohortConnector, bool) {
	return c.lookup(c.snapshot.Load(), collectionID)
}

// CohortConnectors returns the local connector, when set, followed by the
// remote connectors in the order the members joined
func (c *Connector) CohortConnectors() ([]CohortConnector, error) {
	return c.cohortConnectors(c.snapshot.Load())
}

// ProcessRetrievedEntity returns a copy of an entity read from the given
// member and hands another copy to the retrieval sink. An entity without a
// home is attributed to the aggregate collection.
func (c *Connector) ProcessRetrievedEntity(ctx context.Context, sourceCollectionID string, entity *metadata.Entity) *metadata.Entity {
	if entity == nil {
		return nil
	}

	retrieved := entity.Clone()
	if retrieved.HomeMetadataCollectionID == "" {
		retrieved.HomeMetadataCollectionID = c.aggregateID
	}

	if c.sink != nil {
		c.sink.ProcessRetrievedEntity(ctx, sourceCollectionID, retrieved.Clone())
	}
	return retrieved
}

// ProcessRetrievedRelationship is the relationship counterpart of ProcessRetrievedEntity
func (c *Connector) ProcessRetrievedRelationship(ctx context.Context, sourceCollectionID string, rel *metadata.Relationship) *metadata.Relationship {
	if rel == nil {
		return nil
	}

	retrieved := rel.Clone()
	if retrieved.HomeMetadataCollectionID == "" {
		retrieved.HomeMetadataCollectionID = c.aggregateID
	}

	if c.sink != nil {
		c.sink.ProcessRetrievedRelationship(ctx, sourceCollectionID, retrieved.Clone())
	}
	return retrieved
}

// ProcessRetrievedEntities applies ProcessRetrievedEntity to every entity. Nil entries are dropped.
func (c *Connector) ProcessRetrievedEntities(ctx context.Context, sourceCollectionID string, entities []*metadata.Entity) []*metadata.Entity {
	out := make([]*metadata.Entity, 0, len(entities))
	for _, entity := range entities {
		if retrieved := c.ProcessRetrievedEntity(ctx, sourceCollectionID, entity); retrieved != nil {
			out = append(out, retrieved)
		}
	}
	return out
}

// ProcessRetrievedRelationships applies ProcessRetrievedRelationship to every relationship. Nil entries are dropped.
func (c *Connector) ProcessRetrievedRelationships(ctx context.Context, sourceCollectionID string, rels []*metadata.Relationship) []*metadata.Relationship {
	out := make([]*metadata.Relationship, 0, len(rels))
	for _, rel := range rels {
		if retrieved := c.ProcessRetrievedRelationship(ctx, sourceCollectionID, rel); retrieved != nil {
			out = append(out, retrieved)
		}
	}
	return out
}

func (c *Connector) cohortConnectors(snapshot *members) ([]CohortConnector, error) {
	if snapshot.size() == 0 {
		return nil, errors.NewErrNoRepositories(c.accessService)
	}

	out := make([]CohortConnector, 0, snapshot.size())
	if snapshot.local != nil {
		out = append(out, CohortConnector{MetadataCollectionID: snapshot.localID, Connector: snapshot.local})
	}
	return append(out, snapshot.remotes...), nil
}

func (c *Connector) lookup(snapshot *members, collectionID string) (CohortConnector, bool) {
	if snapshot.local != nil && snapshot.localID == collectionID {
		return CohortConnector{MetadataCollectionID: snapshot.localID, Connector: snapshot.local}, true
	}

	if idx := indexOf(snapshot.remotes, collectionID); idx >= 0 {
		return snapshot.remotes[idx], true
	}
	return CohortConnector{}, false
}

func (c *Connector) release(ctx context.Context, collectionID string, conn connector.Connector) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.memberTimeout)
	defer cancel()
	if err := conn.Disconnect(ctx); err != nil {
		c.logger.Warnf("failed to disconnect member=(%s): %v", collectionID, err)
	}
}

func indexOf(remotes []CohortConnector, collectionID string) int {
	return slices.IndexFunc(remotes, func(remote CohortConnector) bool {
		return remote.MetadataCollectionID == collectionID
	})
}
