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

package certkit_test

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-athirat/corda/pkg/scrypto"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

type hierarchy struct {
	rootKey, intermKey, nodeKey crypto.Signer
	root, interm, node          *x509.Certificate
}

func newHierarchy(t *testing.T) hierarchy {
	t.Helper()
	var h hierarchy
	var err error

	h.rootKey, err = scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	h.root, err = certkit.CreateRootCert(
		pkix.Name{CommonName: "Test Root", Organization: []string{"Test Zone"}},
		h.rootKey, certkit.DefaultWindow)
	require.NoError(t, err)

	h.intermKey, err = scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	h.interm, err = certkit.CreateCert(certkit.IntermediateCA, h.root, h.rootKey,
		pkix.Name{CommonName: "Test Doorman"}, h.intermKey.Public(),
		certkit.Window{After: 5 * 365 * 24 * time.Hour}, nil)
	require.NoError(t, err)

	h.nodeKey, err = scrypto.GenerateKey(scrypto.Ed25519)
	require.NoError(t, err)
	h.node, err = certkit.CreateCert(certkit.NodeCA, h.interm, h.intermKey,
		pkix.Name{CommonName: "Test Node"}, h.nodeKey.Public(),
		certkit.Window{After: 365 * 24 * time.Hour}, nil)
	require.NoError(t, err)
	return h
}

func TestIssuedCertInvariants(t *testing.T) {
	h := newHierarchy(t)

	for _, tc := range []struct {
		name   string
		cert   *x509.Certificate
		parent *x509.Certificate
	}{
		{"root", h.root, h.root},
		{"intermediate", h.interm, h.root},
		{"node", h.node, h.interm},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.cert.NotBefore.Before(tc.cert.NotAfter))
			assert.NoError(t, tc.cert.CheckSignatureFrom(tc.parent))
			assert.Equal(t, tc.parent.Subject.String(), tc.cert.Issuer.String())
			assert.False(t, tc.cert.NotBefore.Before(tc.parent.NotBefore))
			assert.False(t, tc.cert.NotAfter.After(tc.parent.NotAfter))
			assert.LessOrEqual(t, tc.cert.SerialNumber.BitLen(), 63)
		})
	}
}

func TestRoleRoundTrip(t *testing.T) {
	h := newHierarchy(t)

	for _, ct := range []certkit.CertType{
		certkit.NetworkMap,
		certkit.ServiceIdentity,
		certkit.TLS,
		certkit.LegalIdentity,
		certkit.ConfidentialLegalIdentity,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			key, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
			require.NoError(t, err)
			cert, err := certkit.CreateCert(ct, h.node, h.nodeKey,
				pkix.Name{CommonName: ct.String()}, key.Public(),
				certkit.Window{After: 24 * time.Hour}, nil)
			require.NoError(t, err)

			role, err := certkit.RoleFromCert(cert)
			require.NoError(t, err)
			assert.Equal(t, ct.Role(), role)
		})
	}

	role, err := certkit.RoleFromCert(h.root)
	require.NoError(t, err)
	assert.Equal(t, certkit.RoleUnspecified, role)
}

func TestTypePolicy(t *testing.T) {
	h := newHierarchy(t)

	assert.True(t, h.root.IsCA)
	assert.True(t, h.interm.IsCA)
	assert.True(t, h.node.IsCA)
	assert.Equal(t,
		x509.KeyUsageDigitalSignature|x509.KeyUsageCertSign|x509.KeyUsageCRLSign,
		h.node.KeyUsage)

	key, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	tls, err := certkit.CreateCert(certkit.TLS, h.node, h.nodeKey,
		pkix.Name{CommonName: "node tls"}, key.Public(),
		certkit.Window{After: 24 * time.Hour}, nil)
	require.NoError(t, err)
	assert.False(t, tls.IsCA)
	assert.Equal(t,
		x509.KeyUsageDigitalSignature|x509.KeyUsageKeyEncipherment|x509.KeyUsageKeyAgreement,
		tls.KeyUsage)
	assert.Contains(t, tls.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.Contains(t, tls.ExtKeyUsage, x509.ExtKeyUsageClientAuth)
	assert.Contains(t, tls.ExtKeyUsage, x509.ExtKeyUsageAny)
}

func TestVerifyChain(t *testing.T) {
	h := newHierarchy(t)

	otherRootKey, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	otherRoot, err := certkit.CreateRootCert(
		pkix.Name{CommonName: "Unrelated Root"}, otherRootKey, certkit.DefaultWindow)
	require.NoError(t, err)

	t.Run("accepts full chain", func(t *testing.T) {
		assert.NoError(t, certkit.VerifyChain(h.root, h.node, h.interm))
	})
	t.Run("accepts direct child", func(t *testing.T) {
		assert.NoError(t, certkit.VerifyChain(h.root, h.interm))
	})
	t.Run("rejects empty chain", func(t *testing.T) {
		assert.ErrorIs(t, certkit.VerifyChain(h.root), certkit.ErrChainInvalid)
	})
	t.Run("rejects missing intermediate", func(t *testing.T) {
		assert.ErrorIs(t, certkit.VerifyChain(h.root, h.node), certkit.ErrChainInvalid)
	})
	t.Run("rejects unrelated root", func(t *testing.T) {
		assert.ErrorIs(t, certkit.VerifyChain(otherRoot, h.node, h.interm),
			certkit.ErrChainInvalid)
	})
}

func TestCheckRole(t *testing.T) {
	h := newHierarchy(t)

	require.NoError(t, certkit.CheckRole(h.node, certkit.RoleNodeCA))
	err := certkit.CheckRole(h.node, certkit.RoleNetworkMap)
	assert.ErrorIs(t, err, certkit.ErrWrongRole)
}

func TestEmptyValidityWindow(t *testing.T) {
	h := newHierarchy(t)

	key, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	// The parent expires long before the requested window starts.
	_, err = certkit.CreateCert(certkit.TLS, h.node, h.nodeKey,
		pkix.Name{CommonName: "stale"}, key.Public(),
		certkit.Window{Before: -2 * 365 * 24 * time.Hour, After: 3 * 365 * 24 * time.Hour},
		nil)
	assert.Error(t, err)
}

func TestNameConstraints(t *testing.T) {
	h := newHierarchy(t)

	key, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	cert, err := certkit.CreateCert(certkit.NodeCA, h.interm, h.intermKey,
		pkix.Name{CommonName: "constrained node"}, key.Public(),
		certkit.Window{After: 24 * time.Hour},
		&certkit.NameConstraints{PermittedDNSDomains: []string{"example.net"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"example.net"}, cert.PermittedDNSDomains)
	assert.True(t, cert.PermittedDNSDomainsCritical)
}

func TestPEMRoundTrip(t *testing.T) {
	h := newHierarchy(t)

	raw := certkit.EncodePEM(h.root)
	parsed, err := certkit.ParsePEMCert(raw)
	require.NoError(t, err)
	assert.Equal(t, h.root.Raw, parsed.Raw)

	file := filepath.Join(t.TempDir(), "root.pem")
	require.NoError(t, os.WriteFile(file, raw, 0644))
	read, err := certkit.ReadPEMCert(file)
	require.NoError(t, err)
	assert.Equal(t, h.root.Raw, read.Raw)

	t.Run("rejects multiple objects", func(t *testing.T) {
		double := append(append([]byte{}, raw...), certkit.EncodePEM(h.interm)...)
		file := filepath.Join(t.TempDir(), "double.pem")
		require.NoError(t, os.WriteFile(file, double, 0644))
		_, err := certkit.ReadPEMCert(file)
		assert.Error(t, err)
	})
}

func TestCreateCSR(t *testing.T) {
	key, err := scrypto.GenerateKey(scrypto.ECDSAP256SHA256)
	require.NoError(t, err)
	der, err := certkit.CreateCSR(pkix.Name{CommonName: "Node Operator"},
		"admin@example.net", key, scrypto.ECDSAP256SHA256)
	require.NoError(t, err)

	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "Node Operator", csr.Subject.CommonName)

	var foundEmail bool
	for _, name := range csr.Subject.Names {
		if name.Type.Equal(certkit.OIDEmailAddress) {
			foundEmail = true
			assert.Equal(t, "admin@example.net", name.Value)
		}
	}
	assert.True(t, foundEmail)

	t.Run("scheme mismatch", func(t *testing.T) {
		edKey, err := scrypto.GenerateKey(scrypto.Ed25519)
		require.NoError(t, err)
		_, err = certkit.CreateCSR(pkix.Name{CommonName: "x"}, "", edKey,
			scrypto.ECDSAP256SHA256)
		assert.Error(t, err)
	})
}
