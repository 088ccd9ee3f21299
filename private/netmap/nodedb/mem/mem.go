// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mem implements the node descriptor cache in memory. It is used by
// tests and deployments that do not need the cache to survive restarts.
package mem

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/private/netmap/nodedb"
)

var _ nodedb.DB = (*Backend)(nil)

// Backend implements the node descriptor cache in memory, keyed by content
// hash with a secondary index by legal identity.
type Backend struct {
	mu       sync.Mutex
	store    *gocache.Cache
	identity map[string]string
}

// New creates an empty in-memory cache.
func New() *Backend {
	return &Backend{
		store:    gocache.New(gocache.NoExpiration, 0),
		identity: make(map[string]string),
	}
}

// NodeByLegalIdentity returns the descriptor of the given legal identity.
func (b *Backend) NodeByLegalIdentity(name string) (netmap.NodeInfo, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.identity[name]
	if !ok {
		return netmap.NodeInfo{}, false, nil
	}
	return b.get(key)
}

// NodeByHash returns the descriptor with the given content hash.
func (b *Backend) NodeByHash(hash netmap.Hash) (netmap.NodeInfo, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(hash.String())
}

func (b *Backend) get(key string) (netmap.NodeInfo, bool, error) {
	v, ok := b.store.Get(key)
	if !ok {
		return netmap.NodeInfo{}, false, nil
	}
	return v.(netmap.NodeInfo), true, nil
}

// AddNode inserts the descriptor, replacing any previous descriptor of the
// same legal identity.
func (b *Backend) AddNode(info netmap.NodeInfo) error {
	hash, err := info.Hash()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.identity[info.LegalIdentity()]; ok {
		b.store.Delete(old)
	}
	b.store.Set(hash.String(), info, gocache.NoExpiration)
	b.identity[info.LegalIdentity()] = hash.String()
	return nil
}

// RemoveNode deletes the descriptor. Removing an absent descriptor is a
// no-op.
func (b *Backend) RemoveNode(info netmap.NodeInfo) error {
	hash, err := info.Hash()
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := hash.String()
	if _, ok := b.store.Get(key); !ok {
		return nil
	}
	b.store.Delete(key)
	if b.identity[info.LegalIdentity()] == key {
		delete(b.identity, info.LegalIdentity())
	}
	return nil
}

// AllHashes lists the content hashes of all cached descriptors.
func (b *Backend) AllHashes() ([]netmap.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var hashes []netmap.Hash
	for key := range b.store.Items() {
		hash, err := netmap.ParseHash(key)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// Close is a no-op for the in-memory cache.
func (b *Backend) Close() error {
	return nil
}
