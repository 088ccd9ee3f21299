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

// netmap-pki is the tool for generating and inspecting the certificates of
// the platform's trust hierarchy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrea-athirat/corda/netmap-pki/certs"
)

func main() {
	cmd := &cobra.Command{
		Use:           "netmap-pki",
		Short:         "Certificate authority toolkit for the network map platform",
		SilenceErrors: true,
	}
	cmd.AddCommand(
		certs.Cmd(),
	)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
