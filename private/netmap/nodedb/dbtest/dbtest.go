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

// Package dbtest provides a behavioral test suite that every node
// descriptor cache implementation must pass.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/private/netmap/nodedb"
)

// Run executes the suite against a fresh DB per subtest.
func Run(t *testing.T, newDB func(t *testing.T) nodedb.DB) {
	t.Run("empty", func(t *testing.T) {
		db := newDB(t)
		defer db.Close()

		hashes, err := db.AllHashes()
		require.NoError(t, err)
		assert.Empty(t, hashes)

		_, ok, err := db.NodeByHash(netmap.HashBytes([]byte("missing")))
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = db.NodeByLegalIdentity("O=Ghost, L=Nowhere, C=XX")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("add and get", func(t *testing.T) {
		db := newDB(t)
		defer db.Close()

		info := testNode("O=Node A, L=Zurich, C=CH", 1)
		require.NoError(t, db.AddNode(info))

		hash, err := info.Hash()
		require.NoError(t, err)

		got, ok, err := db.NodeByHash(hash)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, info.Equal(got, false))

		got, ok, err = db.NodeByLegalIdentity("O=Node A, L=Zurich, C=CH")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, info.Equal(got, false))

		hashes, err := db.AllHashes()
		require.NoError(t, err)
		assert.Equal(t, []netmap.Hash{hash}, hashes)
	})

	t.Run("replace by identity", func(t *testing.T) {
		db := newDB(t)
		defer db.Close()

		old := testNode("O=Node A, L=Zurich, C=CH", 1)
		require.NoError(t, db.AddNode(old))
		updated := testNode("O=Node A, L=Zurich, C=CH", 2)
		require.NoError(t, db.AddNode(updated))

		got, ok, err := db.NodeByLegalIdentity("O=Node A, L=Zurich, C=CH")
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, 2, got.Serial)

		// The stale descriptor is gone.
		oldHash, err := old.Hash()
		require.NoError(t, err)
		_, ok, err = db.NodeByHash(oldHash)
		require.NoError(t, err)
		assert.False(t, ok)

		hashes, err := db.AllHashes()
		require.NoError(t, err)
		assert.Len(t, hashes, 1)
	})

	t.Run("remove", func(t *testing.T) {
		db := newDB(t)
		defer db.Close()

		info := testNode("O=Node A, L=Zurich, C=CH", 1)
		require.NoError(t, db.AddNode(info))
		require.NoError(t, db.RemoveNode(info))

		hashes, err := db.AllHashes()
		require.NoError(t, err)
		assert.Empty(t, hashes)

		// Removing an absent descriptor is a no-op.
		assert.NoError(t, db.RemoveNode(info))
	})

	t.Run("multiple nodes", func(t *testing.T) {
		db := newDB(t)
		defer db.Close()

		a := testNode("O=Node A, L=Zurich, C=CH", 1)
		b := testNode("O=Node B, L=London, C=GB", 1)
		require.NoError(t, db.AddNode(a))
		require.NoError(t, db.AddNode(b))

		hashes, err := db.AllHashes()
		require.NoError(t, err)
		assert.Len(t, hashes, 2)
	})
}

func testNode(identity string, serial int64) netmap.NodeInfo {
	return netmap.NodeInfo{
		Addresses:       []string{"peer.example.net:10002"},
		LegalIdentities: []netmap.Identity{{Name: identity}},
		PlatformVersion: 4,
		Serial:          serial,
	}
}
