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

// Package repository provides an in-memory metadata repository that can
// join a cohort. It homes its own instances and keeps reference copies of
// the instances homed by other members.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

// ConnectorType is the connector type served by Directory.Factory
const ConnectorType = "memory"

// Memory is an in-memory metadata collection
type Memory struct {
	collectionID string
	latency      time.Duration

	mu            sync.RWMutex
	entities      map[string]*metadata.Entity
	relationships map[string]*metadata.Relationship
}

var _ connector.MetadataCollection = (*Memory)(nil)

// MemoryOption configures a Memory repository
type MemoryOption func(*Memory)

// WithLatency delays every read. It simulates a slow member.
func WithLatency(latency time.Duration) MemoryOption {
	return func(m *Memory) { m.latency = latency }
}

// NewMemory creates an empty repository owning the given collection id
func NewMemory(collectionID string, opts ...MemoryOption) *Memory {
	m := &Memory{
		collectionID:  collectionID,
		entities:      make(map[string]*metadata.Entity),
		relationships: make(map[string]*metadata.Relationship),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MetadataCollectionID implements connector.MetadataCollection
func (m *Memory) MetadataCollectionID() string {
	return m.collectionID
}

// SaveEntity stores an entity. Entities without a home are homed here.
func (m *Memory) SaveEntity(entity *metadata.Entity) *metadata.Entity {
	stored := entity.Clone()
	m.stamp(&stored.Instance)

	m.mu.Lock()
	m.entities[stored.GUID] = stored
	m.mu.Unlock()
	return stored.Clone()
}

// SaveRelationship stores a relationship. Relationships without a home are homed here.
func (m *Memory) SaveRelationship(rel *metadata.Relationship) *metadata.Relationship {
	stored := rel.Clone()
	m.stamp(&stored.Instance)

	m.mu.Lock()
	m.relationships[stored.GUID] = stored
	m.mu.Unlock()
	return stored.Clone()
}

// SaveEntityReferenceCopy stores a copy of an entity homed elsewhere.
// A copy never replaces an entity homed here.
func (m *Memory) SaveEntityReferenceCopy(_ context.Context, entity *metadata.Entity) error {
	if entity == nil || entity.GUID == "" {
		return errors.ErrInvalidInstance
	}

	stored := entity.Clone()
	m.stamp(&stored.Instance)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entities[stored.GUID]; ok && m.homes(existing.Instance, stored.Instance) {
		return errors.NewErrConflictingInstance(stored.GUID, m.collectionID)
	}
	m.entities[stored.GUID] = stored
	return nil
}

// SaveRelationshipReferenceCopy stores a copy of a relationship homed elsewhere
func (m *Memory) SaveRelationshipReferenceCopy(_ context.Context, rel *metadata.Relationship) error {
	if rel == nil || rel.GUID == "" {
		return errors.ErrInvalidInstance
	}

	stored := rel.Clone()
	m.stamp(&stored.Instance)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.relationships[stored.GUID]; ok && m.homes(existing.Instance, stored.Instance) {
		return errors.NewErrConflictingInstance(stored.GUID, m.collectionID)
	}
	m.relationships[stored.GUID] = stored
	return nil
}

// PurgeEntityReferenceCopy removes the stored copy of an entity. Entities homed here are kept.
func (m *Memory) PurgeEntityReferenceCopy(_ context.Context, guid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entities[guid]; ok && existing.HomeMetadataCollectionID == m.collectionID {
		return errors.NewErrConflictingInstance(guid, m.collectionID)
	}
	delete(m.entities, guid)
	return nil
}

// PurgeRelationshipReferenceCopy removes the stored copy of a relationship
func (m *Memory) PurgeRelationshipReferenceCopy(_ context.Context, guid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.relationships[guid]; ok && existing.HomeMetadataCollectionID == m.collectionID {
		return errors.NewErrConflictingInstance(guid, m.collectionID)
	}
	delete(m.relationships, guid)
	return nil
}

// GetEntity implements connector.MetadataCollection
func (m *Memory) GetEntity(ctx context.Context, guid string) (*metadata.Entity, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entity, ok := m.entities[guid]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewErrInstanceNotFound(guid)
	}
	return entity.Clone(), nil
}

// GetRelationship implements connector.MetadataCollection
func (m *Memory) GetRelationship(ctx context.Context, guid string) (*metadata.Relationship, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	rel, ok := m.relationships[guid]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewErrInstanceNotFound(guid)
	}
	return rel.Clone(), nil
}

// FindEntities implements connector.MetadataCollection. Results are sorted by guid.
func (m *Memory) FindEntities(ctx context.Context, query connector.Query) ([]*metadata.Entity, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []*metadata.Entity
	for _, entity := range m.entities {
		if query.Matches(&entity.Instance) {
			out = append(out, entity.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// FindRelationships implements connector.MetadataCollection. Results are sorted by guid.
func (m *Memory) FindRelationships(ctx context.Context, query connector.Query) ([]*metadata.Relationship, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var out []*metadata.Relationship
	for _, rel := range m.relationships {
		if query.Matches(&rel.Instance) {
			out = append(out, rel.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// Connector returns a connector reading this repository
func (m *Memory) Connector() connector.Connector {
	return &memoryConnector{repo: m}
}

func (m *Memory) stamp(inst *metadata.Instance) {
	if inst.HomeMetadataCollectionID == "" {
		inst.HomeMetadataCollectionID = m.collectionID
	}
	if inst.HomeMetadataCollectionID == m.collectionID {
		inst.Provenance = metadata.ProvenanceLocal
	} else if inst.Provenance == metadata.ProvenanceUnknown || inst.Provenance == metadata.ProvenanceLocal {
		inst.Provenance = metadata.ProvenanceRemote
	}
}

// homes reports whether a copy claims an instance this repository is home for
func (m *Memory) homes(existing, incoming metadata.Instance) bool {
	return existing.HomeMetadataCollectionID == m.collectionID && incoming.HomeMetadataCollectionID != m.collectionID
}

func (m *Memory) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memoryConnector struct {
	repo *Memory
}

func (c *memoryConnector) MetadataCollectionID() string {
	return c.repo.collectionID
}

func (c *memoryConnector) MetadataCollection() (connector.MetadataCollection, error) {
	return c.repo, nil
}

func (c *memoryConnector) Disconnect(context.Context) error {
	return nil
}
