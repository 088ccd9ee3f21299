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

package client

import (
	"context"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/scrypto"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

type testZone struct {
	rootKey, mapKey, nodeKey crypto.Signer
	root, mapCert, nodeCert  *x509.Certificate
}

func newTestZone(t *testing.T) *testZone {
	t.Helper()
	z := &testZone{}
	var err error

	z.rootKey, err = scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	z.root, err = certkit.CreateRootCert(pkix.Name{CommonName: "Zone Root"},
		z.rootKey, certkit.DefaultWindow)
	require.NoError(t, err)

	z.mapKey, err = scrypto.GenerateKey(scrypto.Ed25519)
	require.NoError(t, err)
	z.mapCert, err = certkit.CreateCert(certkit.NetworkMap, z.root, z.rootKey,
		pkix.Name{CommonName: "Map Service"}, z.mapKey.Public(),
		certkit.Window{After: 365 * 24 * time.Hour}, nil)
	require.NoError(t, err)

	z.nodeKey, err = scrypto.GenerateKey(scrypto.Ed25519)
	require.NoError(t, err)
	z.nodeCert, err = certkit.CreateCert(certkit.NodeCA, z.root, z.rootKey,
		pkix.Name{CommonName: "Node A"}, z.nodeKey.Public(),
		certkit.Window{After: 365 * 24 * time.Hour}, nil)
	require.NoError(t, err)
	return z
}

func (z *testZone) signedMap(t *testing.T, nm netmap.NetworkMap) *netmap.SignedEnvelope {
	t.Helper()
	env, err := netmap.Sign(nm, z.mapKey, z.mapCert)
	require.NoError(t, err)
	return env
}

func serveJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNetworkMap(t *testing.T) {
	z := newTestZone(t)
	nm := netmap.NetworkMap{
		NodeInfoHashes:       []netmap.Hash{netmap.HashBytes([]byte("n1"))},
		NetworkParameterHash: netmap.HashBytes([]byte("params")),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/network-map", r.URL.Path)
		w.Header().Set("Cache-Control", "max-age=120")
		serveJSON(t, w, z.signedMap(t, nm))
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	got, maxAge, err := c.NetworkMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nm.NetworkParameterHash, got.NetworkParameterHash)
	assert.Equal(t, 2*time.Minute, maxAge)
}

func TestNetworkMapNoCacheControl(t *testing.T) {
	z := newTestZone(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, z.signedMap(t, netmap.NetworkMap{}))
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	_, maxAge, err := c.NetworkMap(context.Background())
	require.NoError(t, err)
	assert.Zero(t, maxAge)
}

func TestNetworkMapWrongRole(t *testing.T) {
	z := newTestZone(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env, err := netmap.Sign(netmap.NetworkMap{}, z.nodeKey, z.nodeCert)
		require.NoError(t, err)
		serveJSON(t, w, env)
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	_, _, err := c.NetworkMap(context.Background())
	assert.ErrorIs(t, err, certkit.ErrWrongRole)
}

func TestNodeInfo(t *testing.T) {
	z := newTestZone(t)
	info := netmap.NodeInfo{
		Addresses:       []string{"peer.example.net:10002"},
		LegalIdentities: []netmap.Identity{{Name: "O=Node A, L=Zurich, C=CH"}},
		PlatformVersion: 4,
		Serial:          1,
	}
	env, err := netmap.Sign(info, z.nodeKey, z.nodeCert)
	require.NoError(t, err)
	hash := env.Hash()
	// requested is the hash the next request asks for; the server always
	// answers with env.
	requested := hash

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/network-map/node-info/"+requested.String(), r.URL.Path)
		serveJSON(t, w, env)
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	got, err := c.NodeInfo(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, info.Equal(got, false))

	t.Run("hash mismatch", func(t *testing.T) {
		requested = netmap.HashBytes([]byte("other"))
		_, err := c.NodeInfo(context.Background(), requested)
		assert.Error(t, err)
	})
}

func TestNetworkParameters(t *testing.T) {
	z := newTestZone(t)
	params := netmap.NetworkParameters{MinimumPlatformVersion: 4, Epoch: 2}
	env, err := netmap.Sign(params, z.mapKey, z.mapCert)
	require.NoError(t, err)
	hash := env.Hash()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/network-map/network-parameters/"+hash.String(), r.URL.Path)
		serveJSON(t, w, env)
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	got, err := c.NetworkParameters(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, env.Raw, got.Raw)
}

func TestPublish(t *testing.T) {
	z := newTestZone(t)
	env, err := netmap.Sign(netmap.NodeInfo{Serial: 1}, z.nodeKey, z.nodeCert)
	require.NoError(t, err)

	var received netmap.SignedEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/network-map/publish", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	c := New(srv.URL, z.root)
	require.NoError(t, c.Publish(context.Background(), env))
	assert.Equal(t, env.Raw, received.Raw)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node info rejected", http.StatusForbidden)
	}))
	defer srv.Close()

	z := newTestZone(t)
	env, err := netmap.Sign(netmap.NodeInfo{Serial: 1}, z.nodeKey, z.nodeCert)
	require.NoError(t, err)

	c := New(srv.URL, z.root)
	err = c.Publish(context.Background(), env)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusForbidden, terr.Status)
	assert.Equal(t, "node info rejected", terr.Body)
}

func TestPublicHostname(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/network-map/my-hostname", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		_, err := w.Write([]byte("node.example.net\nextra ignored"))
		require.NoError(t, err)
	}))
	defer srv.Close()

	z := newTestZone(t)
	c := New(srv.URL, z.root)
	hostname, err := c.PublicHostname(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node.example.net", hostname)
}

func TestCacheMaxAge(t *testing.T) {
	for name, tc := range map[string]struct {
		header   http.Header
		expected time.Duration
	}{
		"missing":        {http.Header{}, 0},
		"plain":          {http.Header{"Cache-Control": {"max-age=60"}}, time.Minute},
		"with directive": {http.Header{"Cache-Control": {"public, max-age=30"}}, 30 * time.Second},
		"first wins":     {http.Header{"Cache-Control": {"max-age=10", "max-age=99"}}, 10 * time.Second},
		"no max-age":     {http.Header{"Cache-Control": {"no-store"}}, 0},
		"malformed":      {http.Header{"Cache-Control": {"max-age=abc"}}, 0},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cacheMaxAge(tc.header))
		})
	}
}
