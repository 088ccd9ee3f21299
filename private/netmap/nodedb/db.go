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

// Package nodedb defines the local cache of peer node descriptors the
// network-map updater reconciles against the zone registry.
package nodedb

import (
	"github.com/andrea-athirat/corda/pkg/netmap"
)

// DB is the node descriptor cache. Implementations must be safe for
// concurrent use; the updater treats every call as atomic.
type DB interface {
	// NodeByLegalIdentity returns the descriptor whose primary legal
	// identity matches the given name.
	NodeByLegalIdentity(name string) (netmap.NodeInfo, bool, error)
	// NodeByHash returns the descriptor with the given content hash.
	NodeByHash(hash netmap.Hash) (netmap.NodeInfo, bool, error)
	// AddNode inserts the descriptor, replacing an older descriptor of the
	// same legal identity.
	AddNode(info netmap.NodeInfo) error
	// RemoveNode deletes the descriptor.
	RemoveNode(info netmap.NodeInfo) error
	// AllHashes lists the content hashes of all cached descriptors.
	AllHashes() ([]netmap.Hash, error)
	// Close releases the backing resources.
	Close() error
}
