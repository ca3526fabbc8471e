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
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"

	"github.com/tochemey/cohort/errors"
)

const (
	boltFileMode      os.FileMode = 0o600
	boltLocalBucket               = "local_registration"
	boltRemotesBucket             = "remote_members"
	boltLocalKey                  = "local"
)

var defaultBoltOptions = &bbolt.Options{Timeout: 5 * time.Second, NoGrowSync: true}

// BoltStore is a Store persisted with go.etcd.io/bbolt.
//
// Members are encoded with CBOR. The local registration and the remote
// members live in separate buckets so that Clear can drop both in one
// transaction. Unlike the MemoryStore, the content survives a restart.
type BoltStore struct {
	db     *bbolt.DB
	path   string
	closed *atomic.Bool
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	options := *defaultBoltOptions
	db, err := bbolt.Open(path, boltFileMode, &options)
	if err != nil {
		return nil, fmt.Errorf("registry: opening boltdb: %w", err)
	}

	if err := db.Update(createBuckets); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: initializing boltdb buckets: %w", err)
	}

	return &BoltStore{db: db, path: path, closed: atomic.NewBool(false)}, nil
}

func (s *BoltStore) SaveLocal(ctx context.Context, member *Member) error {
	return s.put(ctx, boltLocalBucket, boltLocalKey, member)
}

func (s *BoltStore) Local(ctx context.Context) (*Member, error) {
	return s.get(ctx, boltLocalBucket, boltLocalKey)
}

func (s *BoltStore) SaveRemote(ctx context.Context, member *Member) error {
	if member == nil {
		return nil
	}
	return s.put(ctx, boltRemotesBucket, member.MetadataCollectionID, member)
}

func (s *BoltStore) Remote(ctx context.Context, collectionID string) (*Member, error) {
	return s.get(ctx, boltRemotesBucket, collectionID)
}

func (s *BoltStore) RemoveRemote(ctx context.Context, collectionID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltRemotesBucket)).Delete([]byte(collectionID))
	})
}

func (s *BoltStore) Remotes(ctx context.Context) ([]*Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []*Member
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltRemotesBucket)).ForEach(func(_, raw []byte) error {
			member := new(Member)
			if err := cbor.Unmarshal(raw, member); err != nil {
				return err
			}
			out = append(out, member)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("registry: reading remote members: %w", err)
	}

	sortMembers(out)
	return out, nil
}

func (s *BoltStore) Clear(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{boltLocalBucket, boltRemotesBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}
		return createBuckets(tx)
	})
}

// Close releases the database handle. The file is kept.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) put(ctx context.Context, bucket, key string, member *Member) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	data, err := cbor.Marshal(member)
	if err != nil {
		return fmt.Errorf("registry: encoding member: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (s *BoltStore) get(ctx context.Context, bucket, key string) (*Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var member *Member
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		member = new(Member)
		return cbor.Unmarshal(raw, member)
	})
	if err != nil {
		return nil, fmt.Errorf("registry: reading member %s: %w", key, err)
	}
	return member, nil
}

func (s *BoltStore) ready(ctx context.Context) error {
	if s.closed.Load() {
		return errors.ErrStoreClosed
	}
	return ctx.Err()
}

func createBuckets(tx *bbolt.Tx) error {
	for _, name := range []string{boltLocalBucket, boltRemotesBucket} {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return err
		}
	}
	return nil
}
