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

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// VerifyChain validates the given certificate chain against the trust
// anchor using PKIX path validation. The chain is ordered leaf first.
// Revocation is not checked; the platform distributes revocations
// out-of-band.
func VerifyChain(anchor *x509.Certificate, chain ...*x509.Certificate) error {
	if anchor == nil {
		return serrors.Join(ErrChainInvalid, nil, "reason", "no trust anchor")
	}
	if len(chain) == 0 {
		return serrors.Join(ErrChainInvalid, nil, "reason", "empty chain")
	}
	roots := x509.NewCertPool()
	roots.AddCert(anchor)
	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return serrors.Join(ErrChainInvalid, err)
	}
	return nil
}

// CheckRole verifies that the certificate carries exactly the expected
// platform role.
func CheckRole(cert *x509.Certificate, want Role) error {
	got, err := RoleFromCert(cert)
	if err != nil {
		return err
	}
	if got != want {
		return serrors.Join(ErrWrongRole, nil, "expected", want, "actual", got)
	}
	return nil
}
