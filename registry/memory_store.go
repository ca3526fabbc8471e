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
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store. Registrations do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	local   *Member
	remotes map[string]*Member
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a new in-memory Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{remotes: make(map[string]*Member)}
}

func (s *MemoryStore) SaveLocal(_ context.Context, member *Member) error {
	s.mu.Lock()
	s.local = member.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Local(context.Context) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local.Clone(), nil
}

func (s *MemoryStore) SaveRemote(_ context.Context, member *Member) error {
	if member == nil {
		return nil
	}
	s.mu.Lock()
	s.remotes[member.MetadataCollectionID] = member.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remote(_ context.Context, collectionID string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remotes[collectionID].Clone(), nil
}

func (s *MemoryStore) RemoveRemote(_ context.Context, collectionID string) error {
	s.mu.Lock()
	delete(s.remotes, collectionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remotes(context.Context) ([]*Member, error) {
	s.mu.RLock()
	out := make([]*Member, 0, len(s.remotes))
	for _, member := range s.remotes {
		out = append(out, member.Clone())
	}
	s.mu.RUnlock()

	sortMembers(out)
	return out, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.local = nil
	s.remotes = make(map[string]*Member)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortMembers(members []*Member) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].RegistrationTime == members[j].RegistrationTime {
			return members[i].MetadataCollectionID < members[j].MetadataCollectionID
		}
		return members[i].RegistrationTime < members[j].RegistrationTime
	})
}
