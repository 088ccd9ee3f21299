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

package serrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

func TestNew(t *testing.T) {
	err := serrors.New("failure", "ctx", 1)
	assert.Equal(t, "failure {ctx=1}", err.Error())
	assert.True(t, errors.Is(err, err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := serrors.Wrap("operation failed", cause, "name", "x")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "operation failed {name=x}: underlying", err.Error())
}

func TestJoinSentinel(t *testing.T) {
	sentinel := errors.New("not found")
	cause := errors.New("no such row")
	err := serrors.Join(sentinel, cause, "key", "abc")
	assert.True(t, errors.Is(err, sentinel))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "key=abc")
}

func TestJoinNil(t *testing.T) {
	assert.NoError(t, serrors.Join(nil, nil))
}

func TestContextSorted(t *testing.T) {
	err := serrors.New("failure", "b", 2, "a", 1)
	assert.Equal(t, "failure {a=1; b=2}", err.Error())
}

func TestList(t *testing.T) {
	var l serrors.List
	assert.NoError(t, l.ToError())
	l = append(l, serrors.New("first"), serrors.New("second"))
	assert.Error(t, l.ToError())
	assert.Equal(t, "[ first; second ]", fmt.Sprint(l.ToError()))
}
