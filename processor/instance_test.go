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

package processor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/federation"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
	"github.com/tochemey/cohort/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.Event) error {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) published() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}

type staticLocator map[string]connector.Connector

func (l staticLocator) ConnectorFor(collectionID string) (federation.CohortConnector, bool) {
	conn, ok := l[collectionID]
	if !ok {
		return federation.CohortConnector{}, false
	}
	return federation.CohortConnector{MetadataCollectionID: collectionID, Connector: conn}, true
}

type brokenStore struct {
	panics bool
}

func (b brokenStore) SaveEntityReferenceCopy(context.Context, *metadata.Entity) error {
	if b.panics {
		panic("disk on fire")
	}
	return fmt.Errorf("disk full")
}

func (b brokenStore) SaveRelationshipReferenceCopy(context.Context, *metadata.Relationship) error {
	return fmt.Errorf("disk full")
}

func (b brokenStore) PurgeEntityReferenceCopy(context.Context, string) error {
	return fmt.Errorf("disk full")
}

func (b brokenStore) PurgeRelationshipReferenceCopy(context.Context, string) error {
	return fmt.Errorf("disk full")
}

// gatedStore parks the save of one version until it is released
type gatedStore struct {
	*repository.Memory
	version  int64
	entered  chan struct{}
	released chan struct{}
}

func newGatedStore(collectionID string, version int64) *gatedStore {
	return &gatedStore{
		Memory:   repository.NewMemory(collectionID),
		version:  version,
		entered:  make(chan struct{}),
		released: make(chan struct{}),
	}
}

func (g *gatedStore) SaveEntityReferenceCopy(ctx context.Context, entity *metadata.Entity) error {
	if entity.Version == g.version {
		close(g.entered)
		<-g.released
	}
	return g.Memory.SaveEntityReferenceCopy(ctx, entity)
}

var assetType = metadata.TypeDefSummary{GUID: "type-asset", Name: "Asset", Version: 1}

func asset(guid, home string, version int64, name string) *metadata.Entity {
	return &metadata.Entity{
		Instance: metadata.Instance{
			GUID:                     guid,
			Type:                     assetType,
			HomeMetadataCollectionID: home,
			Version:                  version,
			Status:                   metadata.StatusActive,
			Properties:               map[string]any{"name": name},
		},
	}
}

func entityEvent(kind event.InstanceKind, sender string, entity *metadata.Entity) *event.InstanceEvent {
	evt := event.NewEntityEvent(kind, entity)
	evt.Originator.MetadataCollectionID = sender
	return evt
}

func newTypes() *TypeRegistry {
	types := NewTypeRegistry()
	types.PutTypeDef(&metadata.TypeDef{GUID: assetType.GUID, Name: assetType.Name, Version: 1, Category: metadata.TypeDefCategoryEntity})
	types.PutTypeDef(&metadata.TypeDef{GUID: "type-lineage", Name: "Lineage", Version: 1, Category: metadata.TypeDefCategoryRelationship})
	return types
}

type instanceFixture struct {
	local     *repository.Memory
	publisher *recordingPublisher
	processor *InstanceProcessor
}

func newInstanceFixture(opts ...Option) *instanceFixture {
	fixture := &instanceFixture{
		local:     repository.NewMemory("L"),
		publisher: new(recordingPublisher),
	}
	defaults := []Option{
		WithLogger(log.DiscardLogger),
		WithPublisher(fixture.publisher),
		WithReferenceCopyStore(fixture.local),
		WithTypeRegistry(newTypes()),
	}
	fixture.processor = NewInstanceProcessor("L", append(defaults, opts...)...)
	return fixture
}

func (f *instanceFixture) stored(t *testing.T, guid string) *metadata.Entity {
	t.Helper()
	entity, err := f.local.GetEntity(context.Background(), guid)
	require.NoError(t, err)
	return entity
}

func TestInstanceProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("With a duplicate NEW_ENTITY", func(t *testing.T) {
		fixture := newInstanceFixture()
		evt := entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))

		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, evt))
		first := fixture.stored(t, "G1")

		assert.Equal(t, OutcomeDiscarded, fixture.processor.ProcessEvent(ctx, evt))
		assert.Equal(t, first, fixture.stored(t, "G1"))
		assert.EqualValues(t, 1, first.Version)
		assert.Equal(t, metadata.ProvenanceRemote, first.Provenance)
		assert.Empty(t, fixture.publisher.published())
	})

	t.Run("With an update arriving before the creation", func(t *testing.T) {
		fixture := newInstanceFixture()

		assert.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 2, "orders-v2"))))
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))

		stored := fixture.stored(t, "G1")
		assert.EqualValues(t, 2, stored.Version)
		assert.Equal(t, "orders-v2", stored.Properties["name"])

		version, ok := fixture.processor.Version("G1")
		require.True(t, ok)
		assert.EqualValues(t, 2, version)
	})

	t.Run("With older versions after a newer one", func(t *testing.T) {
		for _, older := range []int64{1, 2, 3} {
			fixture := newInstanceFixture()
			require.Equal(t, OutcomeApplied,
				fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 3, "v3"))))
			expected := fixture.stored(t, "G1")

			name := "v3"
			if older < 3 {
				name = fmt.Sprintf("v%d", older)
			}
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", older, name)))
			assert.Equal(t, expected, fixture.stored(t, "G1"))
		}
	})

	t.Run("With an event from a member that is not home", func(t *testing.T) {
		fixture := newInstanceFixture()
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "B", asset("G1", "A", 1, "orders"))))
		_, ok := fixture.processor.Version("G1")
		assert.False(t, ok)

		replicated := asset("G2", "A", 1, "orders")
		replicated.ReplicatedBy = "B"
		assert.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "B", replicated)))
	})

	t.Run("With the local member as home", func(t *testing.T) {
		fixture := newInstanceFixture()
		assert.Equal(t, OutcomeIgnored,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "L", 9, "orders"))))
		assert.Equal(t, OutcomeIgnored,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "L", asset("G1", "A", 1, "orders"))))
	})

	t.Run("With malformed events", func(t *testing.T) {
		fixture := newInstanceFixture()
		assert.Equal(t, OutcomeIgnored, fixture.processor.ProcessEvent(ctx, nil))
		assert.Equal(t, OutcomeFailed,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", nil)))
		assert.Equal(t, OutcomeFailed,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "", 1, "orders"))))

		unknown := &event.InstanceEvent{InstanceSection: event.InstanceSection{Kind: event.InstanceKind(200)}}
		unknown.Originator.MetadataCollectionID = "A"
		assert.Equal(t, OutcomeIgnored, fixture.processor.ProcessEvent(ctx, unknown))
	})

	t.Run("With two members claiming the same instance", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "B", asset("G1", "B", 2, "orders"))))

		published := fixture.publisher.published()
		require.Len(t, published, 1)
		conflict := published[0].(*event.InstanceEvent)
		assert.Equal(t, event.ConflictingInstances, conflict.Kind)
		assert.Equal(t, "B", conflict.Error.TargetMetadataCollectionID)
		assert.Equal(t, "A", conflict.Error.OtherMetadataCollectionID)
		assert.Equal(t, "G1", conflict.Error.TargetInstanceGUID)

		conflicts := fixture.processor.Conflicts()
		require.Len(t, conflicts, 1)
		assert.Equal(t, "CONFLICTING_INSTANCES_EVENT", conflicts[0].Kind)
		assert.Equal(t, "L", conflicts[0].Reporter)
		assert.Contains(t, conflicts[0].String(), "G1")

		assert.EqualValues(t, 1, fixture.stored(t, "G1").Version)
	})

	t.Run("With the same version and different content", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 4, "orders"))))
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 4, "invoices"))))

		require.Len(t, fixture.publisher.published(), 1)
		assert.Equal(t, "orders", fixture.stored(t, "G1").Properties["name"])
	})

	t.Run("With a purge", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))

		deleted := asset("G1", "A", 2, "orders")
		deleted.Status = metadata.StatusDeleted
		require.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, entityEvent(event.DeletedEntity, "A", deleted)))
		require.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, entityEvent(event.PurgedEntity, "A", deleted)))

		_, err := fixture.local.GetEntity(ctx, "G1")
		require.ErrorIs(t, err, errors.ErrInstanceNotFound)

		// a purged instance never comes back
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.RestoredEntity, "A", asset("G1", "A", 3, "orders"))))
		_, err = fixture.local.GetEntity(ctx, "G1")
		require.ErrorIs(t, err, errors.ErrInstanceNotFound)
	})

	t.Run("With types", func(t *testing.T) {
		fixture := newInstanceFixture()

		unknown := asset("G1", "A", 1, "orders")
		unknown.Type = metadata.TypeDefSummary{GUID: "type-unknown", Name: "Unknown"}
		assert.Equal(t, OutcomeDiscarded, fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", unknown)))
		assert.Empty(t, fixture.publisher.published())

		clashing := asset("G2", "A", 1, "orders")
		clashing.Type = metadata.TypeDefSummary{GUID: "type-asset", Name: "Lineage"}
		assert.Equal(t, OutcomeDiscarded, fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", clashing)))

		published := fixture.publisher.published()
		require.Len(t, published, 1)
		conflict := published[0].(*event.InstanceEvent)
		assert.Equal(t, event.ConflictingType, conflict.Kind)
		assert.Equal(t, "Asset", conflict.Error.OtherTypeDef.Name)
		assert.Equal(t, "Lineage", conflict.Error.TargetTypeDef.Name)
	})

	t.Run("With a type renamed at its home", func(t *testing.T) {
		fixture := newInstanceFixture()

		renamed := asset("G1", "A", 1, "orders")
		renamed.Type = metadata.TypeDefSummary{GUID: "type-asset", Name: "DataAsset", Version: 2}
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", renamed)))

		assert.Empty(t, fixture.publisher.published())
		assert.Empty(t, fixture.processor.Conflicts())
		assert.EqualValues(t, 1, fixture.stored(t, "G1").Version)
	})

	t.Run("With a re-typed entity", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))

		retyped := asset("G1", "A", 2, "orders")
		retyped.Type = metadata.TypeDefSummary{GUID: "type-lineage", Name: "Lineage"}
		evt := entityEvent(event.ReTypedEntity, "A", retyped)
		evt.OriginalTypeDefSummary = &assetType
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, evt))
		assert.Equal(t, "Lineage", fixture.stored(t, "G1").Type.Name)
	})

	t.Run("With a re-identified entity", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))

		evt := entityEvent(event.ReIdentifiedEntity, "A", asset("G9", "A", 2, "orders"))
		evt.OriginalInstanceGUID = "G1"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, evt))
		assert.Equal(t, OutcomeDiscarded, fixture.processor.ProcessEvent(ctx, evt))

		_, err := fixture.local.GetEntity(ctx, "G1")
		require.ErrorIs(t, err, errors.ErrInstanceNotFound)
		assert.EqualValues(t, 2, fixture.stored(t, "G9").Version)

		// late events under the original guid are remapped
		version, ok := fixture.processor.Version("G1")
		require.True(t, ok)
		assert.EqualValues(t, 2, version)
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 1, "orders"))))
		assert.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 3, "orders-v3"))))
		assert.EqualValues(t, 3, fixture.stored(t, "G9").Version)

		incomplete := entityEvent(event.ReIdentifiedEntity, "A", asset("G10", "A", 1, "orders"))
		assert.Equal(t, OutcomeFailed, fixture.processor.ProcessEvent(ctx, incomplete))
	})

	t.Run("With a re-homed entity", func(t *testing.T) {
		fixture := newInstanceFixture()
		require.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))

		evt := entityEvent(event.ReHomedEntity, "B", asset("G1", "B", 2, "orders"))
		evt.OriginalHomeMetadataCollectionID = "A"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, evt))
		assert.Equal(t, "B", fixture.stored(t, "G1").HomeMetadataCollectionID)

		// the previous home lost its authority
		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 3, "orders"))))
		assert.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "B", asset("G1", "B", 3, "orders"))))

		missingOrigin := entityEvent(event.ReHomedEntity, "C", asset("G1", "C", 4, "orders"))
		assert.Equal(t, OutcomeFailed, fixture.processor.ProcessEvent(ctx, missingOrigin))
	})

	t.Run("With relationships", func(t *testing.T) {
		fixture := newInstanceFixture()
		rel := &metadata.Relationship{
			Instance: metadata.Instance{
				GUID:                     "R1",
				Type:                     metadata.TypeDefSummary{GUID: "type-lineage", Name: "Lineage"},
				HomeMetadataCollectionID: "A",
				Version:                  1,
				Status:                   metadata.StatusActive,
			},
			End1: metadata.EntityProxy{GUID: "G1"},
			End2: metadata.EntityProxy{GUID: "G2"},
		}
		evt := event.NewRelationshipEvent(event.NewRelationship, rel)
		evt.Originator.MetadataCollectionID = "A"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, evt))

		stored, err := fixture.local.GetRelationship(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, "G2", stored.End2.GUID)

		purged := event.NewRelationshipEvent(event.PurgedRelationship, rel)
		purged.Originator.MetadataCollectionID = "A"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, purged))
		_, err = fixture.local.GetRelationship(ctx, "R1")
		require.ErrorIs(t, err, errors.ErrInstanceNotFound)
	})

	t.Run("With refresh requests", func(t *testing.T) {
		remote := repository.NewMemory("A")
		remote.SaveEntity(asset("G1", "", 4, "orders"))
		home := repository.NewMemory("L")
		home.SaveEntity(asset("G2", "", 1, "invoices"))

		fixture := newInstanceFixture(WithHomeLocator(staticLocator{"A": remote.Connector(), "L": home.Connector()}))

		request := event.NewRefreshRequest(event.RefreshEntityRequest, assetType, "G1", "A")
		request.Originator.MetadataCollectionID = "B"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, request))
		assert.EqualValues(t, 4, fixture.stored(t, "G1").Version)

		// lookup failures are not fatal
		missing := event.NewRefreshRequest(event.RefreshEntityRequest, assetType, "G404", "A")
		missing.Originator.MetadataCollectionID = "B"
		assert.Equal(t, OutcomeFailed, fixture.processor.ProcessEvent(ctx, missing))

		unknownHome := event.NewRefreshRequest(event.RefreshEntityRequest, assetType, "G1", "Z")
		unknownHome.Originator.MetadataCollectionID = "B"
		assert.Equal(t, OutcomeIgnored, fixture.processor.ProcessEvent(ctx, unknownHome))

		// the home answers
		answered := event.NewRefreshRequest(event.RefreshEntityRequest, assetType, "G2", "L")
		answered.Originator.MetadataCollectionID = "B"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, answered))

		published := fixture.publisher.published()
		require.Len(t, published, 1)
		refreshed := published[0].(*event.InstanceEvent)
		assert.Equal(t, event.RefreshedEntity, refreshed.Kind)
		assert.Equal(t, "G2", refreshed.Entity.GUID)
	})

	t.Run("With conflict reports", func(t *testing.T) {
		fixture := newInstanceFixture()
		report := event.NewConflictEvent(event.ConflictingInstances, &event.InstanceError{
			Message:                    "guid=(G1) is homed elsewhere",
			TargetMetadataCollectionID: "L",
			TargetInstanceGUID:         "G1",
			OtherMetadataCollectionID:  "A",
		})
		report.Originator.MetadataCollectionID = "A"
		assert.Equal(t, OutcomeApplied, fixture.processor.ProcessEvent(ctx, report))

		conflicts := fixture.processor.Conflicts()
		require.Len(t, conflicts, 1)
		assert.Equal(t, Conflict{
			Kind:     "CONFLICTING_INSTANCES_EVENT",
			Reporter: "A",
			Target:   "L",
			Subject:  "G1",
			Message:  "guid=(G1) is homed elsewhere",
		}, conflicts[0])

		empty := event.NewConflictEvent(event.ConflictingType, nil)
		empty.Originator.MetadataCollectionID = "A"
		assert.Equal(t, OutcomeFailed, fixture.processor.ProcessEvent(ctx, empty))
	})

	t.Run("With a claim on an instance homed locally", func(t *testing.T) {
		fixture := newInstanceFixture()
		fixture.local.SaveEntity(asset("G7", "", 1, "orders"))

		assert.Equal(t, OutcomeDiscarded,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "B", asset("G7", "B", 4, "stolen"))))
		assert.Equal(t, "L", fixture.stored(t, "G7").HomeMetadataCollectionID)
		_, ok := fixture.processor.Version("G7")
		assert.False(t, ok)

		published := fixture.publisher.published()
		require.Len(t, published, 1)
		conflict := published[0].(*event.InstanceEvent)
		assert.Equal(t, event.ConflictingInstances, conflict.Kind)
		assert.Equal(t, "B", conflict.Error.TargetMetadataCollectionID)
		assert.Equal(t, "L", conflict.Error.OtherMetadataCollectionID)

		purged := asset("G7", "B", 5, "stolen")
		assert.Equal(t, OutcomeDiscarded, fixture.processor.ProcessEvent(ctx, entityEvent(event.PurgedEntity, "B", purged)))
		assert.Equal(t, "orders", fixture.stored(t, "G7").Properties["name"])
	})

	t.Run("With a conflict ledger limit", func(t *testing.T) {
		fixture := newInstanceFixture(WithConflictLedgerSize(2))
		for i := range 3 {
			report := event.NewConflictEvent(event.ConflictingInstances, &event.InstanceError{TargetInstanceGUID: fmt.Sprintf("G%d", i)})
			report.Originator.MetadataCollectionID = "A"
			fixture.processor.ProcessEvent(ctx, report)
		}

		conflicts := fixture.processor.Conflicts()
		require.Len(t, conflicts, 2)
		assert.Equal(t, "G1", conflicts[0].Subject)
		assert.Equal(t, "G2", conflicts[1].Subject)
	})

	t.Run("With a failing store", func(t *testing.T) {
		fixture := newInstanceFixture(WithReferenceCopyStore(brokenStore{}))
		assert.Equal(t, OutcomeFailed,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))
		_, ok := fixture.processor.Version("G1")
		assert.False(t, ok)
	})

	t.Run("With a panicking store", func(t *testing.T) {
		fixture := newInstanceFixture(WithReferenceCopyStore(brokenStore{panics: true}))
		assert.Equal(t, OutcomeFailed,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G1", "A", 1, "orders"))))
		assert.Equal(t, OutcomeFailed,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.NewEntity, "A", asset("G2", "A", 1, "orders"))))
	})

	t.Run("With a retrieved copy racing a newer event", func(t *testing.T) {
		store := newGatedStore("L", 2)
		fixture := newInstanceFixture(WithReferenceCopyStore(store))

		retrieved := make(chan struct{})
		go func() {
			defer close(retrieved)
			fixture.processor.ProcessRetrievedEntity(ctx, "A", asset("G1", "A", 2, "orders-v2"))
		}()
		<-store.entered

		outcome := make(chan Outcome, 1)
		go func() {
			outcome <- fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 3, "orders-v3")))
		}()

		// the newer event waits for the pending write of the same guid
		assert.Never(t, func() bool { return len(outcome) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

		close(store.released)
		<-retrieved
		assert.Equal(t, OutcomeApplied, <-outcome)

		stored, err := store.GetEntity(ctx, "G1")
		require.NoError(t, err)
		assert.EqualValues(t, 3, stored.Version)
		assert.Equal(t, "orders-v3", stored.Properties["name"])

		version, ok := fixture.processor.Version("G1")
		require.True(t, ok)
		assert.EqualValues(t, 3, version)
	})

	t.Run("With retrieved copies", func(t *testing.T) {
		fixture := newInstanceFixture()
		fixture.processor.ProcessRetrievedEntity(ctx, "A", asset("G1", "A", 2, "orders"))
		assert.EqualValues(t, 2, fixture.stored(t, "G1").Version)

		fixture.processor.ProcessRetrievedEntity(ctx, "A", asset("G1", "A", 1, "stale"))
		fixture.processor.ProcessRetrievedEntity(ctx, "L", asset("G2", "L", 1, "local"))
		fixture.processor.ProcessRetrievedEntity(ctx, "A", nil)
		fixture.processor.ProcessRetrievedRelationship(ctx, "A", nil)

		assert.Equal(t, "orders", fixture.stored(t, "G1").Properties["name"])
		_, ok := fixture.processor.Version("G2")
		assert.False(t, ok)

		// the event stream still applies newer versions
		assert.Equal(t, OutcomeApplied,
			fixture.processor.ProcessEvent(ctx, entityEvent(event.UpdatedEntity, "A", asset("G1", "A", 3, "orders-v3"))))
	})
}
