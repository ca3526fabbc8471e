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

package repository

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/metadata"
)

// Directory maps endpoint addresses to in-memory repositories so that
// connection descriptors exchanged in registration events can be resolved
// inside one process.
type Directory struct {
	repositories *xsync.MapOf[string, *Memory]
}

// NewDirectory creates an empty Directory
func NewDirectory() *Directory {
	return &Directory{repositories: xsync.NewMapOf[string, *Memory]()}
}

// Add publishes the repository at the given address
func (d *Directory) Add(address string, repo *Memory) {
	d.repositories.Store(address, repo)
}

// Remove withdraws the repository published at the given address
func (d *Directory) Remove(address string) {
	d.repositories.Delete(address)
}

// Lookup returns the repository published at the given address
func (d *Directory) Lookup(address string) (*Memory, bool) {
	return d.repositories.Load(address)
}

// Factory returns the connector factory for the "memory" connector type
func (d *Directory) Factory() connector.Factory {
	return connector.FactoryFunc{
		ConnectorType: ConnectorType,
		Fn: func(_ context.Context, collectionID string, conn *metadata.Connection) (connector.Connector, error) {
			repo, ok := d.Lookup(conn.Endpoint.Address)
			if !ok {
				return nil, fmt.Errorf("no repository listening at %s", conn.Endpoint.Address)
			}
			if repo.MetadataCollectionID() != collectionID {
				return nil, fmt.Errorf("repository at %s owns collection %s, not %s",
					conn.Endpoint.Address, repo.MetadataCollectionID(), collectionID)
			}
			return repo.Connector(), nil
		},
	}
}
