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

package watcher

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/scrypto"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func signedNodeInfo(t *testing.T, identity string, serial int64) *netmap.SignedEnvelope {
	t.Helper()
	key, err := scrypto.GenerateKey(scrypto.Ed25519)
	require.NoError(t, err)
	cert, err := selfSignedNodeCert(key, identity)
	require.NoError(t, err)
	env, err := netmap.Sign(netmap.NodeInfo{
		Addresses:       []string{"peer.example.net:10002"},
		LegalIdentities: []netmap.Identity{{Name: identity, CertDER: cert.Raw}},
		PlatformVersion: 4,
		Serial:          serial,
	}, key, cert)
	require.NoError(t, err)
	return env
}

func selfSignedNodeCert(key crypto.Signer, cn string) (*x509.Certificate, error) {
	return certkit.CreateRootCert(pkix.Name{CommonName: cn}, key, certkit.DefaultWindow)
}

func TestDiscoversDroppedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	env := signedNodeInfo(t, "O=Peer, L=Zurich, C=CH", 1)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	file := filepath.Join(dir, "nodeinfo-"+env.Hash().String())
	require.NoError(t, os.WriteFile(file, raw, 0644))

	select {
	case info := <-w.Updates():
		assert.Equal(t, "O=Peer, L=Zurich, C=CH", info.LegalIdentity())
	case <-time.After(5 * time.Second):
		t.Fatal("descriptor not discovered")
	}

	hashes := w.ProcessedHashes()
	_, ok := hashes[env.Hash()]
	assert.True(t, ok)
}

func TestIgnoresDuplicates(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	env := signedNodeInfo(t, "O=Peer, L=Zurich, C=CH", 1)
	require.NoError(t, w.Save(env))

	select {
	case <-w.Updates():
	case <-time.After(5 * time.Second):
		t.Fatal("descriptor not discovered")
	}
	// The file is rescanned on every tick but must not be emitted again.
	select {
	case info := <-w.Updates():
		t.Fatalf("unexpected duplicate update: %v", info)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIgnoresGarbageFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodeinfo-garbage"),
		[]byte("not an envelope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"),
		[]byte("ignore me"), 0644))

	select {
	case info := <-w.Updates():
		t.Fatalf("unexpected update: %v", info)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Empty(t, w.ProcessedHashes())
}

func TestSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, time.Hour)
	require.NoError(t, err)
	defer w.Close()

	env := signedNodeInfo(t, "O=Peer, L=Zurich, C=CH", 1)
	require.NoError(t, w.Save(env))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "nodeinfo-"+env.Hash().String(), entries[0].Name())
}
