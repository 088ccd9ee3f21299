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
	"crypto/x509"
	"encoding/pem"
	"os"
	"time"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto"
)

// ParsePEMCert parses a single PEM-encoded certificate.
func ParsePEMCert(raw []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, serrors.New("no PEM block found")
	}
	if block.Type != "CERTIFICATE" {
		return nil, serrors.New("unexpected PEM block type", "type", block.Type)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, serrors.Wrap("parsing certificate", err)
	}
	return cert, nil
}

// EncodePEM encodes the certificate as a PEM block.
func EncodePEM(cert *x509.Certificate) []byte {
	return encodePEMBlock("CERTIFICATE", cert.Raw)
}

func encodePEMBlock(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  blockType,
		Bytes: der,
	})
}

// ReadPEMCert reads a certificate from the given file. The file must hold
// exactly one PEM object, and the certificate must be valid at read time.
func ReadPEMCert(file string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading certificate file", err, "file", file)
	}
	block, rest := pem.Decode(raw)
	if block == nil {
		return nil, serrors.New("no PEM block found", "file", file)
	}
	if len(rest) != 0 {
		return nil, serrors.New("more than one PEM object in file", "file", file)
	}
	if block.Type != "CERTIFICATE" {
		return nil, serrors.New("unexpected PEM block type", "type", block.Type, "file", file)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, serrors.Wrap("parsing certificate", err, "file", file)
	}
	validity := scrypto.Validity{NotBefore: cert.NotBefore, NotAfter: cert.NotAfter}
	if now := time.Now(); !validity.Contains(now) {
		return nil, serrors.New("certificate not currently valid",
			"file", file, "validity", validity)
	}
	return cert, nil
}
