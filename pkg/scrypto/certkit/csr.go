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

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto"
)

// CreateCSR builds a PKCS#10 certificate signing request for the given
// subject. The contact e-mail address is carried as an emailAddress
// attribute in the subject distinguished name.
func CreateCSR(subject pkix.Name, email string, key crypto.Signer,
	scheme scrypto.Scheme) ([]byte, error) {

	keyScheme, err := scrypto.SchemeForKey(key)
	if err != nil {
		return nil, err
	}
	if keyScheme != scheme {
		return nil, serrors.New("key does not match requested scheme",
			"requested", scheme, "key", keyScheme)
	}
	if email != "" {
		subject.ExtraNames = append(subject.ExtraNames, pkix.AttributeTypeAndValue{
			Type:  OIDEmailAddress,
			Value: email,
		})
	}
	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:            subject,
		SignatureAlgorithm: scheme.SignatureAlgorithm(),
	}, key)
	if err != nil {
		return nil, serrors.Wrap("creating certificate request", err)
	}
	return csr, nil
}

// EncodePEMCSR encodes a DER certificate signing request as PEM.
func EncodePEMCSR(der []byte) []byte {
	return encodePEMBlock("CERTIFICATE REQUEST", der)
}
