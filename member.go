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

// Package cohort joins a metadata repository to a cohort of repositories.
//
// A Member announces the local repository through the cohort registry,
// keeps one connector per remote member, applies the instance and type
// definition events the other members publish, and hands out federated
// connectors that query every member at once.
package cohort

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/cohort/connector"
	gerrors "github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/federation"
	"github.com/tochemey/cohort/internal/metric"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/manager"
	"github.com/tochemey/cohort/processor"
	"github.com/tochemey/cohort/registry"
	"github.com/tochemey/cohort/transport"
)

// refreshAccessService names the federated connector the member uses to answer refresh requests
const refreshAccessService = "cohort.refresh"

// Member is the local member of a cohort.
//
// A member is started once. A stopped member cannot be started again:
// create a new one with the same configuration to rejoin.
type Member struct {
	config    *Config
	transport transport.Transport
	broker    *connector.Broker
	manager   *manager.Manager
	registry  *registry.Registry
	types     *processor.TypeRegistry
	instances *processor.InstanceProcessor
	typedefs  *processor.TypeDefProcessor
	// refresher locates the home of an instance for refresh requests
	refresher *federation.Connector
	// connectors are the federated connectors handed out to access services
	connectors *xsync.MapOf[string, *federation.Connector]

	logger        log.Logger
	meterProvider otelmetric.MeterProvider
	metric        *metric.CohortMetric
	store         registry.Store
	ownsStore     bool
	originator    event.Originator

	subscription transport.Subscription
	started      *atomic.Bool
	stopped      *atomic.Bool
}

// enforce compilation error
var (
	_ registry.Publisher  = (*Member)(nil)
	_ processor.Publisher = (*Member)(nil)
)

// locatorFunc adapts a function to processor.HomeLocator
type locatorFunc func(collectionID string) (federation.CohortConnector, bool)

func (f locatorFunc) ConnectorFor(collectionID string) (federation.CohortConnector, bool) {
	return f(collectionID)
}

// New creates a cohort member. The member joins the cohort through the
// given transport once started.
func New(config *Config, cohortTransport transport.Transport, opts ...Option) (*Member, error) {
	if config == nil {
		return nil, gerrors.NewConfigurationError(errors.New("the configuration is required"))
	}

	if err := config.Validate(); err != nil {
		return nil, gerrors.NewConfigurationError(err)
	}

	if cohortTransport == nil {
		return nil, gerrors.NewConfigurationError(errors.New("the transport is required"))
	}

	m := &Member{
		config:     config,
		transport:  cohortTransport,
		broker:     connector.NewBroker(),
		types:      processor.NewTypeRegistry(),
		connectors: xsync.NewMapOf[string, *federation.Connector](),
		logger:     log.DefaultLogger,
		started:    atomic.NewBool(false),
		stopped:    atomic.NewBool(false),
		originator: event.Originator{
			ServerName:             config.serverName,
			ServerType:             config.serverType,
			OrganizationName:       config.organizationName,
			MetadataCollectionID:   config.collectionID,
			MetadataCollectionName: config.collectionName,
		},
	}

	for _, opt := range opts {
		opt.Apply(m)
	}

	m.logger = log.Component(m.logger, "cohort").With("metadataCollectionID", config.collectionID)
	m.manager = manager.New(m.broker, manager.WithLogger(m.logger))

	provider := metric.NewProvider(metric.WithMeterProvider(m.meterProvider))
	cohortMetric, err := metric.NewCohortMetric(provider.Meter(), func() int64 {
		return int64(len(m.manager.RemoteMembers()) + 1)
	})
	if err != nil {
		return nil, err
	}
	m.metric = cohortMetric

	m.instances = processor.NewInstanceProcessor(config.collectionID,
		processor.WithLogger(m.logger),
		processor.WithMetric(m.metric),
		processor.WithPublisher(m),
		processor.WithReferenceCopyStore(config.repository),
		processor.WithTypeRegistry(m.types),
		processor.WithRefreshTimeout(config.refreshTimeout),
		processor.WithHomeLocator(locatorFunc(func(collectionID string) (federation.CohortConnector, bool) {
			return m.refresher.ConnectorFor(collectionID)
		})))

	m.typedefs = processor.NewTypeDefProcessor(config.collectionID, m.types,
		processor.WithLogger(m.logger),
		processor.WithMetric(m.metric),
		processor.WithPublisher(m))

	m.refresher = m.federatedConnector(refreshAccessService)
	return m, nil
}

// MetadataCollectionID returns the id of the local metadata collection
func (m *Member) MetadataCollectionID() string {
	return m.config.collectionID
}

// Start joins the cohort.
//
// It connects the transport, hands the local repository to the connector
// manager, subscribes to the cohort events and announces the local member.
func (m *Member) Start(ctx context.Context) error {
	if m.stopped.Load() || !m.started.CompareAndSwap(false, true) {
		return gerrors.ErrAlreadyStarted
	}

	if err := m.start(ctx); err != nil {
		m.logger.Errorf("failed to join the cohort: %v", err)
		m.stopped.Store(true)
		return multierr.Append(err, m.release(ctx))
	}

	m.logger.Infof("metadataCollection=(%s) started", m.config.collectionID)
	return nil
}

// Stop leaves the cohort temporarily: the other members keep the
// registration of the local member and a restarted member rejoins with it.
func (m *Member) Stop(ctx context.Context) error {
	return m.stop(ctx, false)
}

// Leave leaves the cohort permanently. The other members forget the local
// member and the local registration is cleared.
func (m *Member) Leave(ctx context.Context) error {
	return m.stop(ctx, true)
}

// NewFederatedConnector creates a started federated connector for the
// given access service. Retrieved instances homed elsewhere are kept as
// reference copies in the local repository. The connector is disconnected
// when the member stops.
func (m *Member) NewFederatedConnector(ctx context.Context, accessService string) (*federation.Connector, error) {
	if !m.started.Load() || m.stopped.Load() {
		return nil, gerrors.NewConfigurationError(gerrors.ErrCohortNotConnected)
	}

	if accessService == "" {
		return nil, gerrors.NewConfigurationError(errors.New("the access service is required"))
	}

	conn := m.federatedConnector(accessService)
	if err := conn.Start(ctx); err != nil {
		return nil, err
	}

	m.connectors.Store(conn.AggregateID(), conn)
	return conn, nil
}

// Publish sends an event to the cohort. The event header is stamped with
// the local member identity, the current time and the outbound direction.
func (m *Member) Publish(ctx context.Context, evt event.Event) error {
	if evt == nil {
		return errors.New("cannot publish a nil event")
	}

	header := evt.EventHeader()
	header.Timestamp = time.Now().UnixMilli()
	header.Originator = m.originator
	header.Direction = event.DirectionOutbound
	return m.transport.Publish(ctx, evt)
}

// Refresh asks every member of the cohort to announce itself again
func (m *Member) Refresh(ctx context.Context) error {
	if !m.started.Load() || m.stopped.Load() {
		return gerrors.ErrNotStarted
	}
	return m.registry.Refresh(ctx)
}

// Members returns the remote members known to the local member
func (m *Member) Members(ctx context.Context) ([]*registry.Member, error) {
	if !m.started.Load() {
		return nil, gerrors.ErrNotStarted
	}
	return m.registry.Members(ctx)
}

// Types returns the type definitions known to the local member
func (m *Member) Types() *processor.TypeRegistry {
	return m.types
}

// Conflicts returns the most recent instance conflicts followed by the
// most recent type definition conflicts
func (m *Member) Conflicts() []processor.Conflict {
	return append(m.instances.Conflicts(), m.typedefs.Conflicts()...)
}

func (m *Member) start(ctx context.Context) error {
	if m.store == nil {
		if m.config.registryPath == "" {
			m.store = registry.NewMemoryStore()
		} else {
			store, err := registry.NewBoltStore(m.config.registryPath)
			if err != nil {
				return err
			}
			m.store = store
		}
		m.ownsStore = true
	}

	local := &registry.Member{
		MetadataCollectionID:   m.config.collectionID,
		MetadataCollectionName: m.config.collectionName,
		ServerName:             m.config.serverName,
		ServerType:             m.config.serverType,
		OrganizationName:       m.config.organizationName,
		Connection:             m.config.connection.Clone(),
	}

	cohortRegistry, err := registry.New(local, m, m.manager,
		registry.WithLogger(m.logger),
		registry.WithStore(m.store),
		registry.WithMetric(m.metric))
	if err != nil {
		return err
	}
	m.registry = cohortRegistry

	if err := m.transport.Connect(ctx); err != nil {
		return fmt.Errorf("cohort: connecting the transport: %w", err)
	}

	if err := m.manager.SetLocalConnector(m.config.collectionID, m.config.repository.Connector()); err != nil {
		return err
	}

	if err := m.refresher.Start(ctx); err != nil {
		return err
	}

	subscription, err := m.transport.Subscribe(m.handle)
	if err != nil {
		return fmt.Errorf("cohort: subscribing to the cohort events: %w", err)
	}
	m.subscription = subscription

	return m.registry.Connect(ctx)
}

func (m *Member) stop(ctx context.Context, permanent bool) error {
	if !m.started.Load() || !m.stopped.CompareAndSwap(false, true) {
		return gerrors.ErrNotStarted
	}

	var err error
	if disconnectErr := m.registry.Disconnect(ctx, permanent); disconnectErr != nil && !errors.Is(disconnectErr, gerrors.ErrNotStarted) {
		err = multierr.Append(err, disconnectErr)
	}

	err = multierr.Append(err, m.release(ctx))
	if err != nil {
		m.logger.Errorf("metadataCollection=(%s) stopped with errors: %v", m.config.collectionID, err)
		return err
	}

	m.logger.Infof("metadataCollection=(%s) stopped", m.config.collectionID)
	return nil
}

// release frees what start acquired. It tolerates a partial start.
func (m *Member) release(ctx context.Context) error {
	var err error
	if m.subscription != nil {
		err = multierr.Append(err, m.subscription.Unsubscribe())
	}

	m.connectors.Range(func(id string, conn *federation.Connector) bool {
		err = multierr.Append(err, disconnectFailures(conn.Disconnect(ctx)))
		m.connectors.Delete(id)
		return true
	})
	err = multierr.Append(err, disconnectFailures(m.refresher.Disconnect(ctx)))

	err = multierr.Append(err, m.manager.Disconnect(ctx))
	err = multierr.Append(err, m.transport.Close(ctx))

	if m.ownsStore && m.store != nil {
		err = multierr.Append(err, m.store.Close())
	}
	return err
}

// handle dispatches an inbound event to the component owning its category
func (m *Member) handle(ctx context.Context, evt event.Event) {
	if evt == nil {
		return
	}

	header := evt.EventHeader()
	if header.Originator.MetadataCollectionID == m.config.collectionID {
		return
	}
	header.Direction = event.DirectionInbound

	switch e := evt.(type) {
	case *event.RegistryEvent:
		if err := m.registry.ProcessEvent(ctx, e); err != nil {
			m.logger.Debugf("%s from metadataCollection=(%s) rejected: %v", e.Kind, header.Originator.MetadataCollectionID, err)
		}
	case *event.InstanceEvent:
		outcome := m.instances.ProcessEvent(ctx, e)
		m.logger.Debugf("%s from metadataCollection=(%s) %s", e.Kind, header.Originator.MetadataCollectionID, outcome)
	case *event.TypeDefEvent:
		outcome := m.typedefs.ProcessEvent(ctx, e)
		m.logger.Debugf("%s from metadataCollection=(%s) %s", e.Kind, header.Originator.MetadataCollectionID, outcome)
	default:
		m.logger.Warnf("ignoring event of category=(%s) from metadataCollection=(%s)", evt.Category(), header.Originator.MetadataCollectionID)
	}
}

func (m *Member) federatedConnector(accessService string) *federation.Connector {
	return federation.New(accessService, m.manager,
		federation.WithLogger(m.logger),
		federation.WithSink(m.instances),
		federation.WithMemberTimeout(m.config.memberTimeout),
		federation.WithMaxConcurrency(m.config.maxConcurrency),
		federation.WithMetric(m.metric))
}

func disconnectFailures(failures []federation.DisconnectFailure) error {
	var err error
	for _, failure := range failures {
		err = multierr.Append(err, fmt.Errorf("metadataCollection=(%s): %w", failure.MetadataCollectionID, failure.Err))
	}
	return err
}
