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

package netmap

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// Hash is the content address of a serialized artifact in the compatibility
// zone: node infos, network parameters and parameter updates are all
// referenced by the SHA-256 over their canonical byte representation.
type Hash [sha256.Size]byte

// HashBytes computes the content hash of the given bytes.
func HashBytes(raw []byte) Hash {
	return sha256.Sum256(raw)
}

// ParseHash parses a hex encoded hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, serrors.Wrap("decoding hash", err, "input", s)
	}
	if len(raw) != sha256.Size {
		return Hash{}, serrors.New("invalid hash length", "len", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
