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

// Package certkit implements the hierarchical certificate toolkit of the
// platform: the certificate type catalog with its key-usage and role
// policies, certificate issuance, PEM handling, and chain validation
// against a trust anchor.
//
// The certificate hierarchy is root CA -> intermediate (doorman) CA ->
// node CA -> {TLS, legal identity, confidential identity}, with the
// network-map and service-identity certificates issued directly under the
// root or an intermediate. The platform role of a certificate is carried
// in a dedicated non-critical extension.
package certkit

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// Errors returned by this package.
var (
	// ErrIssuance indicates the post-issuance invariants did not hold.
	ErrIssuance = errors.New("certificate issuance failed")
	// ErrChainInvalid indicates PKIX path validation failed.
	ErrChainInvalid = errors.New("certificate chain invalid")
	// ErrWrongRole indicates a certificate carries an unexpected platform role.
	ErrWrongRole = errors.New("certificate role mismatch")
)

// OIDs used by the platform.
var (
	// OIDRoleExtension identifies the extension carrying the platform role.
	OIDRoleExtension = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 50530, 1, 1}
	// OIDEmailAddress is the PKCS#9 emailAddress attribute type.
	OIDEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

	oidExtKeyUsageServerAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	oidExtKeyUsageClientAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	oidExtKeyUsageAny        = asn1.ObjectIdentifier{2, 5, 29, 37, 0}

	oidExtensionSubjectKeyID     = asn1.ObjectIdentifier{2, 5, 29, 14}
	oidExtensionKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
)

// Role is the platform role carried in the role extension. The root CA
// carries no role extension.
type Role int

// Platform roles. The numeric values are the wire encoding inside the role
// extension and must not change.
const (
	RoleUnspecified Role = iota
	RoleIntermediateCA
	RoleNetworkMap
	RoleServiceIdentity
	RoleNodeCA
	RoleTLS
	RoleLegalIdentity
	RoleConfidentialLegalIdentity
)

func (r Role) String() string {
	switch r {
	case RoleIntermediateCA:
		return "INTERMEDIATE_CA"
	case RoleNetworkMap:
		return "NETWORK_MAP"
	case RoleServiceIdentity:
		return "SERVICE_IDENTITY"
	case RoleNodeCA:
		return "NODE_CA"
	case RoleTLS:
		return "TLS"
	case RoleLegalIdentity:
		return "LEGAL_IDENTITY"
	case RoleConfidentialLegalIdentity:
		return "CONFIDENTIAL_LEGAL_IDENTITY"
	default:
		return "UNSPECIFIED"
	}
}

// CertType enumerates the certificate types the platform issues.
type CertType int

// Certificate types.
const (
	RootCA CertType = iota + 1
	IntermediateCA
	NodeCA
	LegalIdentity
	TLS
	NetworkMap
	ServiceIdentity
	ConfidentialLegalIdentity
)

func (t CertType) String() string {
	switch t {
	case RootCA:
		return "root-ca"
	case IntermediateCA:
		return "intermediate-ca"
	case NodeCA:
		return "node-ca"
	case LegalIdentity:
		return "legal-identity"
	case TLS:
		return "tls"
	case NetworkMap:
		return "network-map"
	case ServiceIdentity:
		return "service-identity"
	case ConfidentialLegalIdentity:
		return "confidential-legal-identity"
	default:
		return "unknown"
	}
}

// KeyUsage returns the key usage bits for the certificate type.
func (t CertType) KeyUsage() x509.KeyUsage {
	switch t {
	case RootCA, IntermediateCA, NodeCA:
		return x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	case LegalIdentity:
		return x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign
	case TLS:
		return x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment |
			x509.KeyUsageKeyAgreement
	case NetworkMap, ServiceIdentity, ConfidentialLegalIdentity:
		return x509.KeyUsageDigitalSignature
	default:
		return 0
	}
}

// IsCA reports whether certificates of this type are certificate authorities.
func (t CertType) IsCA() bool {
	switch t {
	case RootCA, IntermediateCA, NodeCA, LegalIdentity:
		return true
	default:
		return false
	}
}

// Role returns the platform role encoded into certificates of this type.
// The root CA has no role.
func (t CertType) Role() Role {
	switch t {
	case IntermediateCA:
		return RoleIntermediateCA
	case NodeCA:
		return RoleNodeCA
	case LegalIdentity:
		return RoleLegalIdentity
	case TLS:
		return RoleTLS
	case NetworkMap:
		return RoleNetworkMap
	case ServiceIdentity:
		return RoleServiceIdentity
	case ConfidentialLegalIdentity:
		return RoleConfidentialLegalIdentity
	default:
		return RoleUnspecified
	}
}

// extKeyUsageOIDs returns the extended key usage sequence. All platform
// certificates are usable for both sides of a TLS connection.
func (t CertType) extKeyUsageOIDs() []asn1.ObjectIdentifier {
	return []asn1.ObjectIdentifier{
		oidExtKeyUsageServerAuth,
		oidExtKeyUsageClientAuth,
		oidExtKeyUsageAny,
	}
}

// RoleFromCert extracts the platform role from the role extension of the
// given certificate. Certificates without a role extension yield
// RoleUnspecified.
func RoleFromCert(cert *x509.Certificate) (Role, error) {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(OIDRoleExtension) {
			continue
		}
		var tag int
		rest, err := asn1.Unmarshal(ext.Value, &tag)
		if err != nil {
			return RoleUnspecified, serrors.Wrap("parsing role extension", err)
		}
		if len(rest) != 0 {
			return RoleUnspecified, serrors.New("trailing data in role extension")
		}
		if tag < int(RoleIntermediateCA) || tag > int(RoleConfidentialLegalIdentity) {
			return RoleUnspecified, serrors.New("unknown role tag", "tag", tag)
		}
		return Role(tag), nil
	}
	return RoleUnspecified, nil
}

// roleExtension encodes the role as a single ASN.1 INTEGER in the platform
// role extension.
func roleExtension(r Role) (pkix.Extension, error) {
	val, err := asn1.Marshal(int(r))
	if err != nil {
		return pkix.Extension{}, serrors.Wrap("encoding role extension", err)
	}
	return pkix.Extension{Id: OIDRoleExtension, Value: val}, nil
}

// SubjectKeyID computes the subject key identifier as the SHA-1 hash over
// the subject public key bits, per RFC 5280 section 4.2.1.2 method 1.
func SubjectKeyID(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, serrors.Wrap("marshalling public key", err)
	}
	var spki struct {
		Algorithm        pkix.AlgorithmIdentifier
		SubjectPublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, serrors.Wrap("parsing subject public key info", err)
	}
	skid := sha1.Sum(spki.SubjectPublicKey.Bytes)
	return skid[:], nil
}

func subjectKeyIDExtension(pub crypto.PublicKey) (pkix.Extension, error) {
	skid, err := SubjectKeyID(pub)
	if err != nil {
		return pkix.Extension{}, err
	}
	val, err := asn1.Marshal(skid)
	if err != nil {
		return pkix.Extension{}, serrors.Wrap("encoding subject key ID", err)
	}
	return pkix.Extension{Id: oidExtensionSubjectKeyID, Value: val}, nil
}

// basicConstraintsExtension builds the basic constraints extension. Its
// criticality equals the CA flag.
func basicConstraintsExtension(isCA bool) (pkix.Extension, error) {
	val, err := asn1.Marshal(struct {
		IsCA bool `asn1:"optional"`
	}{IsCA: isCA})
	if err != nil {
		return pkix.Extension{}, serrors.Wrap("encoding basic constraints", err)
	}
	return pkix.Extension{
		Id:       oidExtensionBasicConstraints,
		Critical: isCA,
		Value:    val,
	}, nil
}

func keyUsageExtension(ku x509.KeyUsage) (pkix.Extension, error) {
	var bitLen int
	for i := 0; i < 9; i++ {
		if ku&(1<<uint(i)) != 0 {
			bitLen = i + 1
		}
	}
	bits := make([]byte, (bitLen+7)/8)
	for i := 0; i < bitLen; i++ {
		if ku&(1<<uint(i)) != 0 {
			bits[i/8] |= 0x80 >> (uint(i) % 8)
		}
	}
	val, err := asn1.Marshal(asn1.BitString{Bytes: bits, BitLength: bitLen})
	if err != nil {
		return pkix.Extension{}, serrors.Wrap("encoding key usage", err)
	}
	return pkix.Extension{Id: oidExtensionKeyUsage, Value: val}, nil
}

func extKeyUsageExtension(oids []asn1.ObjectIdentifier) (pkix.Extension, error) {
	val, err := asn1.Marshal(oids)
	if err != nil {
		return pkix.Extension{}, serrors.Wrap("encoding extended key usage", err)
	}
	return pkix.Extension{Id: oidExtensionExtKeyUsage, Value: val}, nil
}
