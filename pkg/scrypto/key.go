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

package scrypto

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// EncodePEMKey encodes the private key as a PEM-wrapped PKCS#8 block.
func EncodePEMKey(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, serrors.Wrap("marshalling private key", err)
	}
	raw := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	})
	if raw == nil {
		return nil, serrors.New("encoding private key PEM")
	}
	return raw, nil
}

// LoadPEMKey loads a PEM-wrapped PKCS#8 private key from the given file.
func LoadPEMKey(file string) (crypto.Signer, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading private key file", err, "file", file)
	}
	block, rest := pem.Decode(raw)
	if block == nil {
		return nil, serrors.New("no PEM block found", "file", file)
	}
	if len(rest) != 0 {
		return nil, serrors.New("trailing data after PEM block", "file", file)
	}
	if block.Type != "PRIVATE KEY" {
		return nil, serrors.New("unexpected PEM block type", "type", block.Type, "file", file)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, serrors.Wrap("parsing private key", err, "file", file)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, serrors.New("private key cannot sign", "file", file)
	}
	return signer, nil
}
