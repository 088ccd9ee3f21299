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

package netmap

import (
	"crypto"
	"crypto/x509"
	"encoding/json"
	"errors"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

// ErrPayloadInvalid indicates a signed payload could not be deserialized.
var ErrPayloadInvalid = errors.New("payload invalid")

// SignedEnvelope carries opaque payload bytes, a detached signature over
// them, and the signer's certificate. The certificate chain of the signer
// must be validatable against an externally supplied trust anchor; the
// envelope itself makes no trust decision.
type SignedEnvelope struct {
	Raw       []byte `json:"raw"`
	Signature []byte `json:"signature"`
	CertDER   []byte `json:"certificate"`
}

// Sign serializes the payload to its canonical form and signs it with the
// given key. The certificate must match the signing key.
func Sign(payload interface{}, key crypto.Signer, cert *x509.Certificate) (*SignedEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, serrors.Wrap("serializing payload", err)
	}
	return SignRaw(raw, key, cert)
}

// SignRaw signs already-serialized payload bytes.
func SignRaw(raw []byte, key crypto.Signer, cert *x509.Certificate) (*SignedEnvelope, error) {
	sig, err := scrypto.SignBytes(key, raw)
	if err != nil {
		return nil, serrors.Wrap("signing payload", err)
	}
	return &SignedEnvelope{
		Raw:       raw,
		Signature: sig,
		CertDER:   cert.Raw,
	}, nil
}

// SignerCert parses the signer certificate carried in the envelope.
func (e *SignedEnvelope) SignerCert() (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(e.CertDER)
	if err != nil {
		return nil, serrors.Join(ErrPayloadInvalid, err, "reason", "bad signer certificate")
	}
	return cert, nil
}

// Verify checks the signature over the payload bytes under the public key
// of the carried certificate and returns the signer certificate.
func (e *SignedEnvelope) Verify() (*x509.Certificate, error) {
	cert, err := e.SignerCert()
	if err != nil {
		return nil, err
	}
	if err := scrypto.VerifyBytes(cert.PublicKey, e.Raw, e.Signature); err != nil {
		return nil, serrors.Wrap("verifying envelope signature", err)
	}
	return cert, nil
}

// Hash returns the content hash of the payload bytes.
func (e *SignedEnvelope) Hash() Hash {
	return HashBytes(e.Raw)
}

// UnmarshalPayload deserializes the payload bytes into v.
func (e *SignedEnvelope) UnmarshalPayload(v interface{}) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return serrors.Join(ErrPayloadInvalid, err)
	}
	return nil
}

// VerifyWithRole authenticates the envelope against the trust anchor: the
// signature must verify, the signer must carry the expected platform role,
// and the signer's chain must validate to the anchor. Only then is the
// payload deserialized into v.
func VerifyWithRole(e *SignedEnvelope, role certkit.Role, anchor *x509.Certificate,
	v interface{}) error {

	cert, err := e.Verify()
	if err != nil {
		return err
	}
	if err := certkit.CheckRole(cert, role); err != nil {
		return err
	}
	if err := certkit.VerifyChain(anchor, cert); err != nil {
		return err
	}
	return e.UnmarshalPayload(v)
}

// VerifiedNetworkMap authenticates a signed network map: the signer must
// hold the network-map role and chain to the trust anchor.
func VerifiedNetworkMap(e *SignedEnvelope, anchor *x509.Certificate) (NetworkMap, error) {
	var nm NetworkMap
	if err := VerifyWithRole(e, certkit.RoleNetworkMap, anchor, &nm); err != nil {
		return NetworkMap{}, err
	}
	return nm, nil
}

// VerifiedNodeInfo checks the envelope signature and deserializes the node
// descriptor. Node descriptors are signed with the node's own identity, so
// no role or chain check applies here; callers cross-check the content hash
// against the network map instead.
func VerifiedNodeInfo(e *SignedEnvelope) (NodeInfo, error) {
	if _, err := e.Verify(); err != nil {
		return NodeInfo{}, err
	}
	var ni NodeInfo
	if err := e.UnmarshalPayload(&ni); err != nil {
		return NodeInfo{}, err
	}
	return ni, nil
}
