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
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// RandSerial returns a random positive 63-bit certificate serial number.
// 63 bits rather than 64 keeps the DER INTEGER encoding positive on
// implementations that sign-extend.
func RandSerial() (*big.Int, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, serrors.Wrap("reading entropy for serial number", err)
	}
	v := binary.BigEndian.Uint64(b) >> 1
	return new(big.Int).SetUint64(v), nil
}
