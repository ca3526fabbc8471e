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

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/internal/metric"
	"github.com/tochemey/cohort/internal/validation"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
)

// Publisher sends registry events to the rest of the cohort.
// The publisher is responsible for stamping the event header.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

// Topology is told about membership changes. It is implemented by *manager.Manager.
type Topology interface {
	Validate(collectionID string, conn *metadata.Connection) error
	AddRemoteConnector(ctx context.Context, collectionID string, conn *metadata.Connection) error
	RemoveRemoteConnector(ctx context.Context, collectionID string)
}

const (
	outcomeApplied   = "applied"
	outcomeRejected  = "rejected"
	outcomeIgnored   = "ignored"
	outcomeConflict  = "conflict"
	outcomeReported  = "reported"
	registryCategory = "registry"
)

// Registry tracks the members of the cohort from registry events.
//
// Events are processed one at a time. A member that announces a connection
// that cannot be used is answered with a REGISTRATION_ERROR and is not
// registered. A second server claiming a known metadata collection id is
// answered with a REGISTRATION_ERROR and does not replace the known member.
type Registry struct {
	mu        sync.Mutex
	local     *Member
	publisher Publisher
	topology  Topology
	store     Store
	logger    log.Logger
	metric    *metric.CohortMetric
	connected *atomic.Bool
}

// New creates a Registry for the local member
func New(local *Member, publisher Publisher, topology Topology, opts ...Option) (*Registry, error) {
	if local == nil {
		return nil, gerrors.NewConfigurationError(errors.New("the local member is required"))
	}

	chain := validation.New(validation.FailFast()).
		AddValidator(validation.NewIdentifierValidator("metadataCollectionID", local.MetadataCollectionID)).
		AddAssertion(publisher != nil, "the publisher is required").
		AddAssertion(topology != nil, "the topology is required")
	if err := chain.Validate(); err != nil {
		return nil, gerrors.NewConfigurationError(err)
	}

	if err := local.Connection.Validate(); err != nil {
		return nil, gerrors.NewConfigurationError(gerrors.NewErrInvalidConnection(local.MetadataCollectionID, err))
	}

	r := &Registry{
		local:     local.Clone(),
		publisher: publisher,
		topology:  topology,
		store:     NewMemoryStore(),
		logger:    log.DiscardLogger,
		connected: atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(r)
	}

	r.logger = log.Component(r.logger, "registry")
	return r, nil
}

// Connect announces the local member to the cohort.
//
// The first time a member joins it publishes a REGISTRATION. A member that
// finds its own registration in the store publishes a RE_REGISTRATION
// instead, keeping its original registration time, and hands the remote
// members it already knew back to the topology.
func (r *Registry) Connect(ctx context.Context) error {
	if !r.connected.CompareAndSwap(false, true) {
		return gerrors.ErrAlreadyStarted
	}

	r.mu.Lock()
	kind, err := r.restore(ctx)
	local := r.local.Clone()
	r.mu.Unlock()

	if err != nil {
		r.connected.Store(false)
		return err
	}

	if err := r.publisher.Publish(ctx, event.NewRegistryEvent(kind, local.RegistrationTime, local.Connection)); err != nil {
		r.connected.Store(false)
		return fmt.Errorf("registry: announcing local member: %w", err)
	}

	r.logger.Infof("metadataCollection=(%s) joined the cohort with %s", local.MetadataCollectionID, kind)
	return nil
}

// Disconnect stops processing registry events. A permanent disconnect
// publishes an UNREGISTRATION and forgets every registration.
func (r *Registry) Disconnect(ctx context.Context, permanent bool) error {
	if !r.connected.CompareAndSwap(true, false) {
		return gerrors.ErrNotStarted
	}

	if !permanent {
		r.logger.Infof("metadataCollection=(%s) disconnected", r.local.MetadataCollectionID)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	unregistration := event.NewRegistryEvent(event.Unregistration, r.local.RegistrationTime, r.local.Connection)
	if err := r.publisher.Publish(ctx, unregistration); err != nil {
		r.logger.Errorf("failed to publish unregistration: %v", err)
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("registry: clearing registrations: %w", err)
	}

	r.logger.Infof("metadataCollection=(%s) left the cohort", r.local.MetadataCollectionID)
	return nil
}

// Refresh asks every member of the cohort to announce itself again
func (r *Registry) Refresh(ctx context.Context) error {
	if !r.connected.Load() {
		return gerrors.ErrNotStarted
	}
	return r.publisher.Publish(ctx, event.NewRegistryEvent(event.RefreshRegistrationRequest, 0, nil))
}

// Members returns the remote members ordered by registration time
func (r *Registry) Members(ctx context.Context) ([]*Member, error) {
	return r.store.Remotes(ctx)
}

// Local returns a copy of the local member
func (r *Registry) Local() *Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.local.Clone()
}

// ProcessEvent applies an inbound registry event.
//
// Events published by the local member are ignored. The returned error
// describes why an event was rejected. It is informational: the
// corresponding REGISTRATION_ERROR has already been published.
func (r *Registry) ProcessEvent(ctx context.Context, evt *event.RegistryEvent) error {
	if evt == nil {
		return nil
	}

	if !r.connected.Load() {
		return gerrors.ErrNotStarted
	}

	sender := evt.Originator.MetadataCollectionID
	if sender == "" || sender == r.local.MetadataCollectionID {
		r.metric.RecordEvent(ctx, registryCategory, outcomeIgnored)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	outcome := outcomeApplied
	switch evt.Kind {
	case event.Registration, event.ReRegistration:
		outcome, err = r.register(ctx, evt)
	case event.RefreshRegistrationRequest:
		r.announce(ctx, event.Registration)
	case event.Unregistration:
		outcome, err = r.unregister(ctx, sender)
	case event.RegistrationError:
		outcome = r.registrationError(evt)
	default:
		r.logger.Warnf("ignoring registry event kind=(%s) from metadataCollection=(%s)", evt.Kind, sender)
		outcome = outcomeIgnored
	}

	r.metric.RecordEvent(ctx, registryCategory, outcome)
	return err
}

// restore must be called with the lock held
func (r *Registry) restore(ctx context.Context) (event.RegistryKind, error) {
	stored, err := r.store.Local(ctx)
	if err != nil {
		return event.RegistryKindUnknown, err
	}

	kind := event.Registration
	switch {
	case stored == nil:
		r.local.RegistrationTime = time.Now().UnixMilli()
	case stored.MetadataCollectionID != r.local.MetadataCollectionID:
		r.logger.Warnf("discarding registrations of metadataCollection=(%s)", stored.MetadataCollectionID)
		if err := r.store.Clear(ctx); err != nil {
			return event.RegistryKindUnknown, err
		}
		r.local.RegistrationTime = time.Now().UnixMilli()
	default:
		r.local.RegistrationTime = stored.RegistrationTime
		kind = event.ReRegistration
	}

	if err := r.store.SaveLocal(ctx, r.local); err != nil {
		return event.RegistryKindUnknown, err
	}

	remotes, err := r.store.Remotes(ctx)
	if err != nil {
		return event.RegistryKindUnknown, err
	}

	for _, member := range remotes {
		if err := r.topology.AddRemoteConnector(ctx, member.MetadataCollectionID, member.Connection); err != nil {
			r.logger.Errorf("failed to restore member=(%s): %v", member.MetadataCollectionID, err)
		}
	}

	return kind, nil
}

// register must be called with the lock held
func (r *Registry) register(ctx context.Context, evt *event.RegistryEvent) (string, error) {
	originator := evt.Originator
	sender := originator.MetadataCollectionID

	if err := r.topology.Validate(sender, evt.RemoteConnection); err != nil {
		r.logger.Errorf("member=(%s) announced an unusable connection: %v", sender, err)
		r.reject(ctx, event.BadRemoteConnection, sender, evt.RemoteConnection, err.Error())
		var connErr *gerrors.ConnectionError
		if !errors.As(err, &connErr) {
			err = gerrors.NewErrInvalidConnection(sender, err)
		}
		return outcomeRejected, err
	}

	known, err := r.store.Remote(ctx, sender)
	if err != nil {
		return outcomeRejected, err
	}

	member := &Member{
		MetadataCollectionID:   sender,
		MetadataCollectionName: originator.MetadataCollectionName,
		ServerName:             originator.ServerName,
		ServerType:             originator.ServerType,
		OrganizationName:       originator.OrganizationName,
		RegistrationTime:       evt.RegistrationTimestamp,
		Connection:             evt.RemoteConnection.Clone(),
	}

	connect := true
	if known != nil {
		switch {
		case known.Connection.Equal(member.Connection):
			connect = false
		case evt.Kind == event.ReRegistration && known.ServerName == member.ServerName:
			// a known server re-registering from a new connection has moved
			r.logger.Infof("member=(%s) moved to a new connection", sender)
		default:
			message := fmt.Sprintf("metadataCollection=(%s) is already registered by server=(%s) with another connection", sender, known.ServerName)
			r.logger.Errorf("rejecting %s from server=(%s): %s", evt.Kind, member.ServerName, message)
			r.reject(ctx, event.ConflictingCollectionID, sender, evt.RemoteConnection, message)
			return outcomeConflict, gerrors.NewErrConflictingCollectionID(sender)
		}

		if member.RegistrationTime == 0 {
			member.RegistrationTime = known.RegistrationTime
		}
	}

	if member.RegistrationTime == 0 {
		member.RegistrationTime = time.Now().UnixMilli()
	}

	if err := r.store.SaveRemote(ctx, member); err != nil {
		return outcomeRejected, err
	}

	if connect {
		if err := r.topology.AddRemoteConnector(ctx, sender, member.Connection); err != nil {
			r.logger.Errorf("failed to connect to member=(%s): %v", sender, err)
		}
	}

	if evt.Kind == event.Registration {
		r.announce(ctx, event.ReRegistration)
	}

	r.logger.Infof("member=(%s) registered with %s", sender, evt.Kind)
	return outcomeApplied, nil
}

// unregister must be called with the lock held
func (r *Registry) unregister(ctx context.Context, sender string) (string, error) {
	known, err := r.store.Remote(ctx, sender)
	if err != nil {
		return outcomeRejected, err
	}

	if known == nil {
		return outcomeIgnored, nil
	}

	if err := r.store.RemoveRemote(ctx, sender); err != nil {
		return outcomeRejected, err
	}

	r.topology.RemoveRemoteConnector(ctx, sender)
	r.logger.Infof("member=(%s) unregistered", sender)
	return outcomeApplied, nil
}

func (r *Registry) registrationError(evt *event.RegistryEvent) string {
	detail := evt.Error
	if detail == nil || detail.TargetMetadataCollectionID != r.local.MetadataCollectionID {
		return outcomeIgnored
	}

	r.logger.Errorf("metadataCollection=(%s) reported %s: %s",
		evt.Originator.MetadataCollectionID, detail.Code, detail.Message)
	return outcomeReported
}

// announce must be called with the lock held
func (r *Registry) announce(ctx context.Context, kind event.RegistryKind) {
	evt := event.NewRegistryEvent(kind, r.local.RegistrationTime, r.local.Connection)
	if err := r.publisher.Publish(ctx, evt); err != nil {
		r.logger.Errorf("failed to publish %s: %v", kind, err)
	}
}

func (r *Registry) reject(ctx context.Context, code event.RegistryErrorCode, target string, conn *metadata.Connection, message string) {
	evt := event.NewRegistrationErrorEvent(code, target, conn, message)
	if err := r.publisher.Publish(ctx, evt); err != nil {
		r.logger.Errorf("failed to publish %s: %v", code, err)
	}
}
