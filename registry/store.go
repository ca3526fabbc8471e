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

	"github.com/tochemey/cohort/metadata"
)

// Member is a repository known to the cohort registry
type Member struct {
	MetadataCollectionID   string `json:"metadataCollectionId"`
	MetadataCollectionName string `json:"metadataCollectionName,omitempty"`
	ServerName             string `json:"serverName,omitempty"`
	ServerType             string `json:"serverType,omitempty"`
	OrganizationName       string `json:"organizationName,omitempty"`
	// RegistrationTime is the time the member first joined, in unix milliseconds
	RegistrationTime int64                `json:"registrationTime"`
	Connection       *metadata.Connection `json:"connection,omitempty"`
}

// Clone returns a deep copy of the member. Nil is preserved.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	out := *m
	out.Connection = m.Connection.Clone()
	return &out
}

// Store persists the registration of the local member and the remote
// members it learned about, so that a restarted member rejoins with the
// same registration time and its known peers.
type Store interface {
	// SaveLocal records the local registration
	SaveLocal(ctx context.Context, member *Member) error
	// Local returns the local registration or nil when the member never joined
	Local(ctx context.Context) (*Member, error)
	// SaveRemote creates or updates a remote member
	SaveRemote(ctx context.Context, member *Member) error
	// Remote returns a remote member or nil when it is unknown
	Remote(ctx context.Context, collectionID string) (*Member, error)
	// RemoveRemote forgets a remote member. Unknown ids are ignored.
	RemoveRemote(ctx context.Context, collectionID string) error
	// Remotes returns the remote members ordered by registration time
	Remotes(ctx context.Context) ([]*Member, error)
	// Clear forgets everything
	Clear(ctx context.Context) error
	// Close releases the store
	Close() error
}
