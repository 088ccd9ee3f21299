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
	"crypto"
	"crypto/x509/pkix"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/pkg/scrypto"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
)

func newCreateCmd() *cobra.Command {
	var flags struct {
		profile string
		csr     bool
		email   string
		ca      string
		caKey   string
		key     string
		scheme  string
		before  time.Duration
		after   time.Duration
		org     string
		country string
	}

	cmd := &cobra.Command{
		Use:   "create [flags] <common-name> <cert-file> <key-file>",
		Short: "Create a certificate or certificate signing request",
		Example: `  netmap-pki certs create --profile root-ca "Zone Root" root.crt root.key
  netmap-pki certs create --profile node-ca --ca doorman.crt --ca-key doorman.key "Node A" node.crt node.key
  netmap-pki certs create --csr --email ops@example.net "Node A" node.csr node.key`,
		Long: `'create' generates a certificate or a certificate signing request (CSR).

The positional arguments are the subject common name, the output
certificate (or CSR) file, and the output file for the freshly generated
private key. An existing key can be reused with the --key flag, in which
case the key file argument is still required but left untouched.

Certificates other than the self-signed root require the issuing CA
certificate and key via --ca and --ca-key. The validity window is anchored
at midnight UTC of the current day and clamped to the issuer's validity.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := parseProfile(flags.profile)
			if err != nil {
				return err
			}
			scheme, err := parseScheme(flags.scheme)
			if err != nil {
				return err
			}
			isSelfSigned := ct == certkit.RootCA
			withCA := flags.ca != "" || flags.caKey != ""
			switch {
			case flags.csr && withCA:
				return serrors.New("CA information set for CSR")
			case !flags.csr && isSelfSigned && withCA:
				return serrors.New("CA information set for self-signed certificate")
			case !flags.csr && !isSelfSigned && !withCA:
				return serrors.New("--ca and --ca-key are required for this profile",
					"profile", ct)
			}
			cmd.SilenceUsage = true

			subject := pkix.Name{CommonName: args[0]}
			if flags.org != "" {
				subject.Organization = []string{flags.org}
			}
			if flags.country != "" {
				subject.Country = []string{flags.country}
			}

			var key crypto.Signer
			var freshKey bool
			if flags.key != "" {
				if key, err = scrypto.LoadPEMKey(flags.key); err != nil {
					return serrors.Wrap("loading existing private key", err)
				}
			} else {
				if key, err = scrypto.GenerateKey(scheme); err != nil {
					return serrors.Wrap("generating private key", err)
				}
				freshKey = true
			}

			window := certkit.Window{Before: flags.before, After: flags.after}
			switch {
			case flags.csr:
				der, err := certkit.CreateCSR(subject, flags.email, key, scheme)
				if err != nil {
					return serrors.Wrap("creating CSR", err)
				}
				if err := os.WriteFile(args[1], certkit.EncodePEMCSR(der), 0644); err != nil {
					return serrors.Wrap("writing CSR", err)
				}
				fmt.Printf("CSR successfully written to %q\n", args[1])
			case isSelfSigned:
				cert, err := certkit.CreateRootCert(subject, key, window)
				if err != nil {
					return serrors.Wrap("creating root certificate", err)
				}
				if err := os.WriteFile(args[1], certkit.EncodePEM(cert), 0644); err != nil {
					return serrors.Wrap("writing certificate", err)
				}
				fmt.Printf("Certificate successfully written to %q\n", args[1])
			default:
				caCert, err := certkit.ReadPEMCert(flags.ca)
				if err != nil {
					return serrors.Wrap("reading CA certificate", err)
				}
				caKey, err := scrypto.LoadPEMKey(flags.caKey)
				if err != nil {
					return serrors.Wrap("loading CA private key", err)
				}
				cert, err := certkit.CreateCert(ct, caCert, caKey, subject,
					key.Public(), window, nil)
				if err != nil {
					return serrors.Wrap("creating certificate", err)
				}
				if err := os.WriteFile(args[1], certkit.EncodePEM(cert), 0644); err != nil {
					return serrors.Wrap("writing certificate", err)
				}
				fmt.Printf("Certificate successfully written to %q\n", args[1])
			}

			if freshKey {
				raw, err := scrypto.EncodePEMKey(key)
				if err != nil {
					return serrors.Wrap("encoding private key", err)
				}
				if err := os.WriteFile(args[2], raw, 0600); err != nil {
					return serrors.Wrap("writing private key", err)
				}
				fmt.Printf("Private key successfully written to %q\n", args[2])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.profile, "profile", "tls",
		"Certificate type (root-ca|intermediate-ca|node-ca|legal-identity|tls|"+
			"network-map|service-identity|confidential-legal-identity)")
	cmd.Flags().BoolVar(&flags.csr, "csr", false,
		"Generate a certificate signing request instead of a certificate")
	cmd.Flags().StringVar(&flags.email, "email", "",
		"Contact e-mail address carried in the CSR")
	cmd.Flags().StringVar(&flags.ca, "ca", "",
		"Path to the issuer certificate")
	cmd.Flags().StringVar(&flags.caKey, "ca-key", "",
		"Path to the issuer private key")
	cmd.Flags().StringVar(&flags.key, "key", "",
		"Path to an existing private key to use instead of creating a new one")
	cmd.Flags().StringVar(&flags.scheme, "scheme", scrypto.ECDSAP256SHA256.String(),
		"Signature scheme for fresh keys")
	cmd.Flags().DurationVar(&flags.before, "before", 0,
		"Backdate the validity window start by this much")
	cmd.Flags().DurationVar(&flags.after, "after", certkit.DefaultWindow.After,
		"Validity window length from midnight UTC today")
	cmd.Flags().StringVar(&flags.org, "org", "",
		"Subject organization")
	cmd.Flags().StringVar(&flags.country, "country", "",
		"Subject country code")
	return cmd
}

func parseProfile(input string) (certkit.CertType, error) {
	for _, ct := range []certkit.CertType{
		certkit.RootCA, certkit.IntermediateCA, certkit.NodeCA,
		certkit.LegalIdentity, certkit.TLS, certkit.NetworkMap,
		certkit.ServiceIdentity, certkit.ConfidentialLegalIdentity,
	} {
		if strings.EqualFold(input, ct.String()) {
			return ct, nil
		}
	}
	return 0, serrors.New("unsupported profile", "profile", input)
}

func parseScheme(input string) (scrypto.Scheme, error) {
	for _, s := range []scrypto.Scheme{scrypto.Ed25519, scrypto.ECDSAP256SHA256} {
		if strings.EqualFold(input, s.String()) {
			return s, nil
		}
	}
	return 0, serrors.New("unsupported scheme", "scheme", input)
}
