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

package cohort

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
	"github.com/tochemey/cohort/processor"
	"github.com/tochemey/cohort/registry"
	"github.com/tochemey/cohort/repository"
	"github.com/tochemey/cohort/transport/inmem"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

var assetType = metadata.TypeDefSummary{GUID: "type-asset", Name: "Asset", Version: 1}

type testCohort struct {
	bus       *inmem.Bus
	directory *repository.Directory
	repos     map[string]*repository.Memory
}

func newTestCohort(t *testing.T) *testCohort {
	t.Helper()
	bus, err := inmem.NewBus()
	require.NoError(t, err)
	return &testCohort{
		bus:       bus,
		directory: repository.NewDirectory(),
		repos:     make(map[string]*repository.Memory),
	}
}

func (c *testCohort) config(id string) *Config {
	repo, ok := c.repos[id]
	if !ok {
		repo = repository.NewMemory(id)
		c.repos[id] = repo
		c.directory.Add(address(id), repo)
	}

	return NewConfig(id, connection(id), repo).
		WithServerName("server-" + id).
		WithServerType("catalog").
		WithMemberTimeout(time.Second)
}

func (c *testCohort) member(t *testing.T, config *Config, opts ...Option) *Member {
	t.Helper()
	types := processor.NewTypeRegistry()
	types.PutTypeDef(&metadata.TypeDef{GUID: assetType.GUID, Name: assetType.Name, Version: 1, Category: metadata.TypeDefCategoryEntity})

	defaults := []Option{
		WithLogger(log.DiscardLogger),
		WithConnectorFactories(c.directory.Factory()),
		WithTypeRegistry(types),
	}
	member, err := New(config, inmem.New(c.bus, "cohort", inmem.WithLogger(log.DiscardLogger)), append(defaults, opts...)...)
	require.NoError(t, err)
	return member
}

func address(id string) string {
	return fmt.Sprintf("%s.fixture.local:9443", id)
}

func connection(id string) *metadata.Connection {
	return &metadata.Connection{
		QualifiedName: id,
		ConnectorType: repository.ConnectorType,
		Endpoint:      metadata.Endpoint{Address: address(id)},
	}
}

func memberIDs(t *testing.T, member *Member) []string {
	t.Helper()
	members, err := member.Members(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.MetadataCollectionID)
	}
	return ids
}

func TestNew(t *testing.T) {
	bus, err := inmem.NewBus()
	require.NoError(t, err)
	defer func() { _ = bus.Close() }()

	repo := repository.NewMemory("L")
	cohortTransport := inmem.New(bus, "cohort", inmem.WithLogger(log.DiscardLogger))

	_, err = New(nil, cohortTransport)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	_, err = New(NewConfig("", connection("L"), repo), cohortTransport)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	_, err = New(NewConfig("L", nil, repo), cohortTransport)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	_, err = New(NewConfig("L", connection("L"), nil), cohortTransport)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	_, err = New(NewConfig("L", connection("L"), repo).WithMemberTimeout(0), cohortTransport)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	_, err = New(NewConfig("L", connection("L"), repo), nil)
	assert.ErrorAs(t, err, new(*errors.ConfigurationError))

	member, err := New(NewConfig("L", connection("L"), repo), cohortTransport, WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	assert.Equal(t, "L", member.MetadataCollectionID())
	assert.NotNil(t, member.Types())
}

func TestMember(t *testing.T) {
	t.Run("With lifecycle errors", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newTestCohort(t)
		defer func() { _ = fixture.bus.Close() }()

		member := fixture.member(t, fixture.config("L"))
		require.ErrorIs(t, member.Stop(ctx), errors.ErrNotStarted)
		require.ErrorIs(t, member.Refresh(ctx), errors.ErrNotStarted)

		_, err := member.NewFederatedConnector(ctx, "catalog")
		require.ErrorAs(t, err, new(*errors.ConfigurationError))
		require.ErrorIs(t, err, errors.ErrCohortNotConnected)

		require.NoError(t, member.Start(ctx))
		require.ErrorIs(t, member.Start(ctx), errors.ErrAlreadyStarted)

		_, err = member.NewFederatedConnector(ctx, "")
		require.ErrorAs(t, err, new(*errors.ConfigurationError))

		require.NoError(t, member.Stop(ctx))
		require.ErrorIs(t, member.Stop(ctx), errors.ErrNotStarted)
		require.ErrorIs(t, member.Start(ctx), errors.ErrAlreadyStarted)
	})

	t.Run("With members joining and leaving", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newTestCohort(t)
		defer func() { _ = fixture.bus.Close() }()

		a := fixture.member(t, fixture.config("A"))
		b := fixture.member(t, fixture.config("B"))
		c := fixture.member(t, fixture.config("C"))

		require.NoError(t, a.Start(ctx))
		require.NoError(t, b.Start(ctx))
		require.NoError(t, c.Start(ctx))

		// newcomers learn the existing members from their replies
		require.Eventually(t, func() bool {
			return len(memberIDs(t, a)) == 2 && len(memberIDs(t, b)) == 2 && len(memberIDs(t, c)) == 2
		}, waitFor, tick)
		assert.ElementsMatch(t, []string{"B", "C"}, memberIDs(t, a))
		assert.ElementsMatch(t, []string{"A", "C"}, memberIDs(t, b))

		members, err := c.Members(ctx)
		require.NoError(t, err)
		for _, m := range members {
			assert.Equal(t, "server-"+m.MetadataCollectionID, m.ServerName)
			assert.True(t, connection(m.MetadataCollectionID).Equal(m.Connection))
		}

		require.NoError(t, c.Leave(ctx))
		require.Eventually(t, func() bool {
			return len(memberIDs(t, a)) == 1 && len(memberIDs(t, b)) == 1
		}, waitFor, tick)
		assert.Equal(t, []string{"B"}, memberIDs(t, a))

		require.NoError(t, b.Stop(ctx))
		require.NoError(t, a.Stop(ctx))
	})

	t.Run("With federated queries", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newTestCohort(t)
		defer func() { _ = fixture.bus.Close() }()

		a := fixture.member(t, fixture.config("A"))
		b := fixture.member(t, fixture.config("B"))
		require.NoError(t, a.Start(ctx))
		require.NoError(t, b.Start(ctx))

		fixture.repos["A"].SaveEntity(&metadata.Entity{Instance: metadata.Instance{
			GUID:       "G1",
			Type:       assetType,
			Version:    3,
			Status:     metadata.StatusActive,
			Properties: map[string]any{"name": "orders"},
		}})

		federated, err := b.NewFederatedConnector(ctx, "catalog")
		require.NoError(t, err)
		assert.Equal(t, "catalog", federated.AccessService())

		require.Eventually(t, func() bool {
			connectors, err := federated.CohortConnectors()
			return err == nil && len(connectors) == 2
		}, waitFor, tick)

		entity, err := federated.GetEntity(ctx, "G1")
		require.NoError(t, err)
		assert.EqualValues(t, 3, entity.Version)
		assert.Equal(t, "A", entity.HomeMetadataCollectionID)

		// the retrieved copy is kept by the local repository
		require.Eventually(t, func() bool {
			copied, err := fixture.repos["B"].GetEntity(ctx, "G1")
			return err == nil && copied.Provenance == metadata.ProvenanceRemote
		}, waitFor, tick)

		require.NoError(t, b.Stop(ctx))
		require.NoError(t, a.Stop(ctx))

		_, err = federated.CohortConnectors()
		require.ErrorIs(t, err, errors.ErrNoRepositories)
	})

	t.Run("With instance and type definition events", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newTestCohort(t)
		defer func() { _ = fixture.bus.Close() }()

		a := fixture.member(t, fixture.config("A"))
		b := fixture.member(t, fixture.config("B"))
		require.NoError(t, a.Start(ctx))
		require.NoError(t, b.Start(ctx))

		table := &metadata.TypeDef{
			GUID:      "type-table",
			Name:      "Table",
			Version:   1,
			Category:  metadata.TypeDefCategoryEntity,
			SuperType: &metadata.TypeDefLink{GUID: assetType.GUID, Name: assetType.Name},
		}
		require.NoError(t, a.Publish(ctx, event.NewTypeDefEvent(event.NewTypeDef, table)))
		require.Eventually(t, func() bool {
			_, ok := b.Types().TypeDefByName("Table")
			return ok
		}, waitFor, tick)

		stored := fixture.repos["A"].SaveEntity(&metadata.Entity{Instance: metadata.Instance{
			GUID:    "G1",
			Type:    metadata.TypeDefSummary{GUID: "type-table", Name: "Table"},
			Version: 1,
			Status:  metadata.StatusActive,
		}})
		require.NoError(t, a.Publish(ctx, event.NewEntityEvent(event.NewEntity, stored)))

		updated := stored.Clone()
		updated.Version = 2
		updated.Properties = map[string]any{"rows": 42}
		require.NoError(t, a.Publish(ctx, event.NewEntityEvent(event.UpdatedEntity, updated)))
		// a late duplicate changes nothing
		require.NoError(t, a.Publish(ctx, event.NewEntityEvent(event.NewEntity, stored)))

		require.Eventually(t, func() bool {
			copied, err := fixture.repos["B"].GetEntity(ctx, "G1")
			return err == nil && copied.Version == 2
		}, waitFor, tick)

		// events are processed in order: once a marker arrives the duplicate was handled
		marker := &metadata.Entity{Instance: metadata.Instance{
			GUID:                     "G-marker",
			Type:                     assetType,
			HomeMetadataCollectionID: "A",
			Version:                  1,
			Status:                   metadata.StatusActive,
		}}
		require.NoError(t, a.Publish(ctx, event.NewEntityEvent(event.NewEntity, marker)))
		require.Eventually(t, func() bool {
			_, err := fixture.repos["B"].GetEntity(ctx, "G-marker")
			return err == nil
		}, waitFor, tick)

		copied, err := fixture.repos["B"].GetEntity(ctx, "G1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, copied.Version)
		assert.EqualValues(t, 42, copied.Properties["rows"])

		// a member claiming an instance homed elsewhere is reported by the home
		fixture.repos["A"].SaveEntity(&metadata.Entity{Instance: metadata.Instance{GUID: "G2", Type: assetType, Version: 1}})
		claim := &metadata.Entity{Instance: metadata.Instance{
			GUID:                     "G2",
			Type:                     assetType,
			HomeMetadataCollectionID: "B",
			Version:                  5,
			Status:                   metadata.StatusActive,
		}}
		require.NoError(t, b.Publish(ctx, event.NewEntityEvent(event.UpdatedEntity, claim)))
		require.Eventually(t, func() bool {
			for _, conflict := range b.Conflicts() {
				if conflict.Reporter == "A" && conflict.Subject == "G2" {
					return true
				}
			}
			return false
		}, waitFor, tick)

		require.NoError(t, b.Stop(ctx))
		require.NoError(t, a.Stop(ctx))
	})

	t.Run("With a restarted member", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		ctx := context.Background()
		fixture := newTestCohort(t)
		defer func() { _ = fixture.bus.Close() }()

		path := filepath.Join(t.TempDir(), "registry.db")
		a := fixture.member(t, fixture.config("A").WithRegistryPath(path))
		b := fixture.member(t, fixture.config("B"))
		require.NoError(t, a.Start(ctx))
		require.NoError(t, b.Start(ctx))

		var registeredAt int64
		require.Eventually(t, func() bool {
			members, err := b.Members(ctx)
			if err != nil || len(members) != 1 {
				return false
			}
			registeredAt = members[0].RegistrationTime
			return len(memberIDs(t, a)) == 1
		}, waitFor, tick)

		require.NoError(t, a.Stop(ctx))

		restarted := fixture.member(t, fixture.config("A").WithRegistryPath(path))
		require.NoError(t, restarted.Start(ctx))

		// the restarted member remembers its peers and its registration time
		assert.Equal(t, []string{"B"}, memberIDs(t, restarted))
		store, ok := restarted.store.(*registry.BoltStore)
		require.True(t, ok)
		local, err := store.Local(ctx)
		require.NoError(t, err)
		assert.Equal(t, registeredAt, local.RegistrationTime)

		require.NoError(t, b.Refresh(ctx))
		require.Eventually(t, func() bool {
			members, err := b.Members(ctx)
			return err == nil && len(members) == 1 && members[0].RegistrationTime == registeredAt
		}, waitFor, tick)

		require.NoError(t, restarted.Stop(ctx))
		require.NoError(t, b.Stop(ctx))
	})
}
