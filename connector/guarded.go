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
	"sync"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

// Guarded wraps a connector so that it can be disconnected while calls are
// in flight. Calls started before Disconnect complete normally; Disconnect
// waits for them before releasing the wrapped connector, and calls started
// afterwards fail with errors.ErrConnectorClosed.
type Guarded struct {
	underlying Connector

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	once     sync.Once
	err      error
}

var (
	_ Connector          = (*Guarded)(nil)
	_ MetadataCollection = (*guardedCollection)(nil)
)

// NewGuarded wraps the connector
func NewGuarded(connector Connector) *Guarded {
	if g, ok := connector.(*Guarded); ok {
		return g
	}
	return &Guarded{underlying: connector}
}

// MetadataCollectionID implements Connector
func (g *Guarded) MetadataCollectionID() string {
	return g.underlying.MetadataCollectionID()
}

// MetadataCollection implements Connector
func (g *Guarded) MetadataCollection() (MetadataCollection, error) {
	release, err := g.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	collection, err := g.underlying.MetadataCollection()
	if err != nil {
		return nil, err
	}
	return &guardedCollection{guard: g, underlying: collection}, nil
}

// Disconnect implements Connector. It is idempotent.
func (g *Guarded) Disconnect(ctx context.Context) error {
	g.once.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			g.inflight.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			// the remaining calls keep their own reference and finish on their own
		}
		g.err = g.underlying.Disconnect(ctx)
	})
	return g.err
}

// Closed reports whether Disconnect has been called
func (g *Guarded) Closed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

func (g *Guarded) acquire() (func(), error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, errors.ErrConnectorClosed
	}
	g.inflight.Add(1)
	return g.inflight.Done, nil
}

type guardedCollection struct {
	guard      *Guarded
	underlying MetadataCollection
}

func (c *guardedCollection) MetadataCollectionID() string {
	return c.underlying.MetadataCollectionID()
}

func (c *guardedCollection) GetEntity(ctx context.Context, guid string) (*metadata.Entity, error) {
	release, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.underlying.GetEntity(ctx, guid)
}

func (c *guardedCollection) GetRelationship(ctx context.Context, guid string) (*metadata.Relationship, error) {
	release, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.underlying.GetRelationship(ctx, guid)
}

func (c *guardedCollection) FindEntities(ctx context.Context, query Query) ([]*metadata.Entity, error) {
	release, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.underlying.FindEntities(ctx, query)
}

func (c *guardedCollection) FindRelationships(ctx context.Context, query Query) ([]*metadata.Relationship, error) {
	release, err := c.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.underlying.FindRelationships(ctx, query)
}
