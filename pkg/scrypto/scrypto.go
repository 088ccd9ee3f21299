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

// Package scrypto holds the cryptographic primitives the identity and
// network-map core builds on: the supported signature schemes, serial
// number generation and validity periods.
package scrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// Scheme is a signature scheme supported by the platform.
type Scheme int

// Signature schemes. ECDSAP256SHA256 is the default scheme for TLS
// certificates and certificate signing requests.
const (
	Ed25519 Scheme = iota + 1
	ECDSAP256SHA256
)

func (s Scheme) String() string {
	switch s {
	case Ed25519:
		return "EDDSA_ED25519_SHA512"
	case ECDSAP256SHA256:
		return "ECDSA_SECP256R1_SHA256"
	default:
		return "UNKNOWN"
	}
}

// SignatureAlgorithm returns the x509 signature algorithm used when a key of
// this scheme signs a certificate.
func (s Scheme) SignatureAlgorithm() x509.SignatureAlgorithm {
	switch s {
	case Ed25519:
		return x509.PureEd25519
	case ECDSAP256SHA256:
		return x509.ECDSAWithSHA256
	default:
		return x509.UnknownSignatureAlgorithm
	}
}

// SchemeForKey derives the signature scheme from the given signing key.
func SchemeForKey(key crypto.Signer) (Scheme, error) {
	switch pub := key.Public().(type) {
	case ed25519.PublicKey:
		return Ed25519, nil
	case *ecdsa.PublicKey:
		if pub.Curve != elliptic.P256() {
			return 0, serrors.New("unsupported ECDSA curve", "curve", pub.Curve.Params().Name)
		}
		return ECDSAP256SHA256, nil
	default:
		return 0, serrors.New("unsupported key type", "type", key.Public())
	}
}

// GenerateKey generates a fresh private key for the given scheme.
func GenerateKey(s Scheme) (crypto.Signer, error) {
	switch s {
	case Ed25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	case ECDSAP256SHA256:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, serrors.New("unsupported scheme", "scheme", s)
	}
}

// SignBytes signs the given message with the scheme implied by the key.
func SignBytes(key crypto.Signer, msg []byte) ([]byte, error) {
	scheme, err := SchemeForKey(key)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case Ed25519:
		return key.Sign(rand.Reader, msg, crypto.Hash(0))
	case ECDSAP256SHA256:
		digest := sha256.Sum256(msg)
		return key.Sign(rand.Reader, digest[:], crypto.SHA256)
	default:
		return nil, serrors.New("unsupported scheme", "scheme", scheme)
	}
}

// VerifyBytes checks that sig is a valid signature of msg under pub.
func VerifyBytes(pub crypto.PublicKey, msg, sig []byte) error {
	switch pub := pub.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(pub, msg, sig) {
			return serrors.New("ed25519 signature verification failed")
		}
		return nil
	case *ecdsa.PublicKey:
		digest := sha256.Sum256(msg)
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return serrors.New("ecdsa signature verification failed")
		}
		return nil
	default:
		return serrors.New("unsupported public key type", "type", pub)
	}
}
