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

package certs

import (
	"crypto/x509"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

func newVerifyCmd() *cobra.Command {
	var flags struct {
		trustAnchor string
		role        string
	}

	cmd := &cobra.Command{
		Use:   "verify [flags] <leaf-cert> [<intermediate-cert> ...]",
		Short: "Verify a certificate chain against a trust anchor",
		Long: `'verify' validates the given certificate chain, leaf first, against the
trust anchor. With --role, the leaf must additionally carry the given
platform role.`,
		Example: `  netmap-pki certs verify --trust-anchor root.crt node.crt doorman.crt
  netmap-pki certs verify --trust-anchor root.crt --role NETWORK_MAP map.crt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			anchor, err := certkit.ReadPEMCert(flags.trustAnchor)
			if err != nil {
				return serrors.Wrap("reading trust anchor", err)
			}
			chain := make([]*x509.Certificate, 0, len(args))
			for _, file := range args {
				cert, err := certkit.ReadPEMCert(file)
				if err != nil {
					return serrors.Wrap("reading certificate", err, "file", file)
				}
				chain = append(chain, cert)
			}
			if err := certkit.VerifyChain(anchor, chain...); err != nil {
				return err
			}
			if flags.role != "" {
				want, err := parseRole(flags.role)
				if err != nil {
					return err
				}
				if err := certkit.CheckRole(chain[0], want); err != nil {
					return err
				}
			}
			fmt.Println("Certificate chain successfully verified")
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.trustAnchor, "trust-anchor", "",
		"PEM file with the trusted root certificate (required)")
	cmd.Flags().StringVar(&flags.role, "role", "",
		"Platform role the leaf certificate must carry")
	cobra.CheckErr(cmd.MarkFlagRequired("trust-anchor"))
	return cmd
}

func parseRole(input string) (certkit.Role, error) {
	for r := certkit.RoleIntermediateCA; r <= certkit.RoleConfidentialLegalIdentity; r++ {
		if input == r.String() {
			return r, nil
		}
	}
	return 0, serrors.New("unknown role", "role", input)
}
