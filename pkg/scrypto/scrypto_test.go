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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemeForKey(t *testing.T) {
	for _, scheme := range []Scheme{Ed25519, ECDSAP256SHA256} {
		t.Run(scheme.String(), func(t *testing.T) {
			key, err := GenerateKey(scheme)
			require.NoError(t, err)
			got, err := SchemeForKey(key)
			require.NoError(t, err)
			assert.Equal(t, scheme, got)
		})
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	msg := []byte("network map contents")
	for _, scheme := range []Scheme{Ed25519, ECDSAP256SHA256} {
		t.Run(scheme.String(), func(t *testing.T) {
			key, err := GenerateKey(scheme)
			require.NoError(t, err)
			sig, err := SignBytes(key, msg)
			require.NoError(t, err)
			assert.NoError(t, VerifyBytes(key.Public(), msg, sig))
			assert.Error(t, VerifyBytes(key.Public(), append(msg, 'x'), sig))

			other, err := GenerateKey(scheme)
			require.NoError(t, err)
			assert.Error(t, VerifyBytes(other.Public(), msg, sig))
		})
	}
}

func TestRandSerialPositive63Bit(t *testing.T) {
	for i := 0; i < 100; i++ {
		serial, err := RandSerial()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, serial.Sign(), 0)
		assert.LessOrEqual(t, serial.BitLen(), 63)
	}
}

func TestValidity(t *testing.T) {
	now := time.Now()
	v := Validity{NotBefore: now, NotAfter: now.Add(time.Hour)}
	assert.True(t, v.Contains(now))
	assert.True(t, v.Contains(now.Add(time.Hour)))
	assert.False(t, v.Contains(now.Add(2*time.Hour)))
	assert.False(t, v.Contains(now.Add(-time.Second)))

	inner := Validity{NotBefore: now.Add(time.Minute), NotAfter: now.Add(30 * time.Minute)}
	assert.True(t, v.Covers(inner))
	assert.False(t, inner.Covers(v))
}

func TestKeyPEMRoundTrip(t *testing.T) {
	for _, scheme := range []Scheme{Ed25519, ECDSAP256SHA256} {
		t.Run(scheme.String(), func(t *testing.T) {
			key, err := GenerateKey(scheme)
			require.NoError(t, err)
			raw, err := EncodePEMKey(key)
			require.NoError(t, err)

			file := filepath.Join(t.TempDir(), "test.key")
			require.NoError(t, os.WriteFile(file, raw, 0600))
			loaded, err := LoadPEMKey(file)
			require.NoError(t, err)
			assert.Equal(t, key.Public(), loaded.Public())
		})
	}
}
