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

package certkit

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"time"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto"
)

// DefaultWindow is the default validity window of issued certificates:
// from midnight UTC today until ten years later.
var DefaultWindow = Window{After: 3650 * 24 * time.Hour}

// Window describes a certificate validity window relative to the issuance
// instant. The window is anchored at midnight UTC of the issuance day and
// clamped to the validity period of the parent certificate, if any.
type Window struct {
	Before time.Duration
	After  time.Duration
}

func (w Window) validity(parent *x509.Certificate) (scrypto.Validity, error) {
	anchor := time.Now().UTC().Truncate(24 * time.Hour)
	v := scrypto.Validity{
		NotBefore: anchor.Add(-w.Before),
		NotAfter:  anchor.Add(w.After),
	}
	if parent != nil {
		if parent.NotBefore.After(v.NotBefore) {
			v.NotBefore = parent.NotBefore
		}
		if parent.NotAfter.Before(v.NotAfter) {
			v.NotAfter = parent.NotAfter
		}
	}
	if v.NotAfter.Before(v.NotBefore) {
		return scrypto.Validity{}, serrors.New("empty validity window",
			"not_before", v.NotBefore, "not_after", v.NotAfter)
	}
	return v, nil
}

// NameConstraints restricts the name space of certificates below a CA
// certificate. The resulting extension is critical.
type NameConstraints struct {
	PermittedDNSDomains []string
	ExcludedDNSDomains  []string
}

// CreateRootCert issues a self-signed root CA certificate. The root carries
// no platform role extension.
func CreateRootCert(subject pkix.Name, key crypto.Signer,
	window Window) (*x509.Certificate, error) {

	tmpl, err := buildTemplate(RootCA, subject, key.Public(), window, nil, nil)
	if err != nil {
		return nil, err
	}
	tmpl.Issuer = subject
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		return nil, serrors.Join(ErrIssuance, err, "type", RootCA)
	}
	return checkIssued(der, nil)
}

// CreateCert issues a certificate of the given type signed by the parent.
// The issuer name is derived from the parent certificate and the validity
// window is clamped to the parent's validity period.
func CreateCert(ct CertType, parent *x509.Certificate, parentKey crypto.Signer,
	subject pkix.Name, pub crypto.PublicKey, window Window,
	nc *NameConstraints) (*x509.Certificate, error) {

	if ct == RootCA {
		return nil, serrors.New("root certificates must be self-signed")
	}
	tmpl, err := buildTemplate(ct, subject, pub, window, parent, nc)
	if err != nil {
		return nil, err
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, parentKey)
	if err != nil {
		return nil, serrors.Join(ErrIssuance, err, "type", ct)
	}
	return checkIssued(der, parent)
}

// buildTemplate assembles the certificate template with the extension set
// dictated by the type policy: subject key identifier, basic constraints
// (critical iff CA), key usage, extended key usage, the role extension for
// typed certificates, and critical name constraints when requested.
func buildTemplate(ct CertType, subject pkix.Name, pub crypto.PublicKey,
	window Window, parent *x509.Certificate, nc *NameConstraints) (*x509.Certificate, error) {

	serial, err := scrypto.RandSerial()
	if err != nil {
		return nil, err
	}
	validity, err := window.validity(parent)
	if err != nil {
		return nil, err
	}

	skid, err := subjectKeyIDExtension(pub)
	if err != nil {
		return nil, err
	}
	bc, err := basicConstraintsExtension(ct.IsCA())
	if err != nil {
		return nil, err
	}
	ku, err := keyUsageExtension(ct.KeyUsage())
	if err != nil {
		return nil, err
	}
	eku, err := extKeyUsageExtension(ct.extKeyUsageOIDs())
	if err != nil {
		return nil, err
	}
	exts := []pkix.Extension{skid, bc, ku, eku}
	if role := ct.Role(); role != RoleUnspecified {
		re, err := roleExtension(role)
		if err != nil {
			return nil, err
		}
		exts = append(exts, re)
	}

	tmpl := &x509.Certificate{
		SerialNumber:    serial,
		Subject:         subject,
		NotBefore:       validity.NotBefore,
		NotAfter:        validity.NotAfter,
		ExtraExtensions: exts,
	}
	if nc != nil {
		tmpl.PermittedDNSDomains = nc.PermittedDNSDomains
		tmpl.ExcludedDNSDomains = nc.ExcludedDNSDomains
		tmpl.PermittedDNSDomainsCritical = true
	}
	return tmpl, nil
}

// checkIssued reparses the freshly issued certificate and asserts the
// issuance invariants: the certificate is currently valid and its signature
// verifies under the issuer key. A violation is a programming error and
// aborts issuance.
func checkIssued(der []byte, parent *x509.Certificate) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, serrors.Join(ErrIssuance, err)
	}
	validity := scrypto.Validity{NotBefore: cert.NotBefore, NotAfter: cert.NotAfter}
	if now := time.Now(); !validity.Contains(now) {
		return nil, serrors.Join(ErrIssuance, nil,
			"reason", "certificate not valid at issuance", "validity", validity)
	}
	if parent != nil {
		if err := cert.CheckSignatureFrom(parent); err != nil {
			return nil, serrors.Join(ErrIssuance, err, "reason", "signature check failed")
		}
	} else {
		if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate,
			cert.Signature); err != nil {
			return nil, serrors.Join(ErrIssuance, err, "reason", "self-signature check failed")
		}
	}
	return cert, nil
}
