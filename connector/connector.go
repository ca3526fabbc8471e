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

// Package connector defines how a cohort member talks to a metadata repository.
package connector

import (
	"context"
	"reflect"

	"github.com/tochemey/cohort/metadata"
)

// Query selects instances by type and property values.
// An empty TypeName matches every type. Every property must match exactly.
type Query struct {
	TypeName   string
	Properties map[string]any
	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// Matches reports whether the instance satisfies the query
func (q Query) Matches(inst *metadata.Instance) bool {
	if inst == nil {
		return false
	}
	if q.TypeName != "" && inst.Type.Name != q.TypeName {
		return false
	}
	for key, want := range q.Properties {
		got, ok := inst.Properties[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// MetadataCollection is the content a repository exposes to the cohort
type MetadataCollection interface {
	// MetadataCollectionID returns the id of the collection
	MetadataCollectionID() string
	// GetEntity returns the entity with the given guid or errors.ErrInstanceNotFound
	GetEntity(ctx context.Context, guid string) (*metadata.Entity, error)
	// GetRelationship returns the relationship with the given guid or errors.ErrInstanceNotFound
	GetRelationship(ctx context.Context, guid string) (*metadata.Relationship, error)
	// FindEntities returns the entities matching the query
	FindEntities(ctx context.Context, query Query) ([]*metadata.Entity, error)
	// FindRelationships returns the relationships matching the query
	FindRelationships(ctx context.Context, query Query) ([]*metadata.Relationship, error)
}

// Connector is a live handle to one repository
type Connector interface {
	// MetadataCollectionID returns the id of the repository behind the connector
	MetadataCollectionID() string
	// MetadataCollection returns the content of the repository
	MetadataCollection() (MetadataCollection, error)
	// Disconnect releases the connector
	Disconnect(ctx context.Context) error
}

// Factory builds connectors of one connector type
type Factory interface {
	// Type returns the connector type the factory handles
	Type() string
	// Connect builds a connector to the repository described by conn
	Connect(ctx context.Context, collectionID string, conn *metadata.Connection) (Connector, error)
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc struct {
	ConnectorType string
	Fn            func(ctx context.Context, collectionID string, conn *metadata.Connection) (Connector, error)
}

var _ Factory = FactoryFunc{}

// Type implements Factory
func (f FactoryFunc) Type() string { return f.ConnectorType }

// Connect implements Factory
func (f FactoryFunc) Connect(ctx context.Context, collectionID string, conn *metadata.Connection) (Connector, error) {
	return f.Fn(ctx, collectionID, conn)
}
