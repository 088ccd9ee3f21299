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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <cert-file>",
		Short: "Show the platform-relevant fields of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return serrors.Wrap("reading certificate file", err, "file", args[0])
			}
			cert, err := certkit.ParsePEMCert(raw)
			if err != nil {
				return err
			}
			role, err := certkit.RoleFromCert(cert)
			if err != nil {
				return err
			}
			fmt.Printf("Subject:    %s\n", cert.Subject)
			fmt.Printf("Issuer:     %s\n", cert.Issuer)
			fmt.Printf("Serial:     %s\n", cert.SerialNumber)
			fmt.Printf("NotBefore:  %s\n", cert.NotBefore.Format(time.RFC3339))
			fmt.Printf("NotAfter:   %s\n", cert.NotAfter.Format(time.RFC3339))
			fmt.Printf("CA:         %t\n", cert.IsCA)
			fmt.Printf("Role:       %s\n", role)
			return nil
		},
	}
	return cmd
}
