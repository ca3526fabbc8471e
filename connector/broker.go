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
	"fmt"
	"sync"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

// Broker resolves connection descriptors into connectors through the
// registered factories.
type Broker struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewBroker creates a Broker with the given factories
func NewBroker(factories ...Factory) *Broker {
	b := &Broker{factories: make(map[string]Factory, len(factories))}
	for _, f := range factories {
		b.Register(f)
	}
	return b
}

// Register adds or replaces the factory of a connector type
func (b *Broker) Register(factory Factory) {
	b.mu.Lock()
	b.factories[factory.Type()] = factory
	b.mu.Unlock()
}

// Validate checks that a connector can be built from conn without building it
func (b *Broker) Validate(collectionID string, conn *metadata.Connection) error {
	if err := conn.Validate(); err != nil {
		return errors.NewErrInvalidConnection(collectionID, err)
	}

	b.mu.RLock()
	_, ok := b.factories[conn.ConnectorType]
	b.mu.RUnlock()
	if !ok {
		return errors.NewErrInvalidConnection(collectionID,
			fmt.Errorf("connectorType=(%s) %w", conn.ConnectorType, errors.ErrUnknownConnectorType))
	}
	return nil
}

// Connect builds a guarded connector to the repository described by conn
func (b *Broker) Connect(ctx context.Context, collectionID string, conn *metadata.Connection) (*Guarded, error) {
	if err := b.Validate(collectionID, conn); err != nil {
		return nil, err
	}

	b.mu.RLock()
	factory := b.factories[conn.ConnectorType]
	b.mu.RUnlock()

	connector, err := factory.Connect(ctx, collectionID, conn)
	if err != nil {
		return nil, errors.NewConnectionError(collectionID, err)
	}
	return NewGuarded(connector), nil
}
