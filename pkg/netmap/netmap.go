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

// Package netmap defines the data model of the compatibility zone: node
// descriptors, the signed network map, the consensus-critical network
// parameters, and the signed envelope that authenticates them.
//
// All artifacts are serialized as canonical JSON: producers marshal a typed
// struct exactly once and from then on only the resulting bytes travel, so
// content hashes stay stable end to end.
package netmap

import (
	"bytes"
	"encoding/json"
	"time"
)

// Identity is a legal identity of a node: the X.500 name in RFC 2253 string
// form together with the DER encoded identity certificate.
type Identity struct {
	Name    string `json:"name"`
	CertDER []byte `json:"certificate"`
}

// NodeInfo is the descriptor a node publishes about itself. Serial is a
// monotonic timestamp incremented on every re-publication; two descriptors
// that differ only in Serial describe the same node state.
type NodeInfo struct {
	Addresses       []string   `json:"addresses"`
	LegalIdentities []Identity `json:"legalIdentities"`
	PlatformVersion int32      `json:"platformVersion"`
	Serial          int64      `json:"serial"`
}

// LegalIdentity returns the primary legal identity name, or the empty
// string for a malformed descriptor.
func (n NodeInfo) LegalIdentity() string {
	if len(n.LegalIdentities) == 0 {
		return ""
	}
	return n.LegalIdentities[0].Name
}

// Encode returns the canonical byte representation of the descriptor.
func (n NodeInfo) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// Hash returns the content hash of the canonical representation.
func (n NodeInfo) Hash() (Hash, error) {
	raw, err := n.Encode()
	if err != nil {
		return Hash{}, err
	}
	return HashBytes(raw), nil
}

// Equal compares two descriptors. With ignoreSerial set the comparison
// treats re-publications of identical state as equal.
func (n NodeInfo) Equal(other NodeInfo, ignoreSerial bool) bool {
	if ignoreSerial {
		n.Serial = 0
		other.Serial = 0
	}
	a, errA := n.Encode()
	b, errB := other.Encode()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// ParametersUpdate announces upcoming network parameters. UpdateDeadline is
// the flag day at which the new parameters become active; operators must
// accept before then.
type ParametersUpdate struct {
	NewParametersHash Hash      `json:"newParametersHash"`
	Description       string    `json:"description"`
	UpdateDeadline    time.Time `json:"updateDeadline"`
}

// NetworkMap is the directory of the compatibility zone: the hashes of all
// registered node descriptors, the hash of the currently active network
// parameters, and an optional announcement of upcoming parameters.
type NetworkMap struct {
	NodeInfoHashes       []Hash            `json:"nodeInfoHashes"`
	NetworkParameterHash Hash              `json:"networkParameterHash"`
	ParametersUpdate     *ParametersUpdate `json:"parametersUpdate,omitempty"`
}

// NetworkParameters are the consensus-critical settings all nodes in the
// zone must agree on.
type NetworkParameters struct {
	MinimumPlatformVersion int32     `json:"minimumPlatformVersion"`
	MaxMessageSize         int64     `json:"maxMessageSize"`
	MaxTransactionSize     int64     `json:"maxTransactionSize"`
	ModifiedTime           time.Time `json:"modifiedTime"`
	Epoch                  int32     `json:"epoch"`
	EventHorizon           Duration  `json:"eventHorizon"`
}

// Duration is a time.Duration that serializes as its string form.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
