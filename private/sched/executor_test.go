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

package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTasksRunInOrder(t *testing.T) {
	e := New("test")
	defer e.Close(time.Second)

	var order []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, e.Submit("task", func(context.Context) {
			order = append(order, i)
			if i == 9 {
				close(done)
			}
		}))
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not complete")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestSubmitAfter(t *testing.T) {
	e := New("test")
	defer e.Close(time.Second)

	done := make(chan time.Time, 1)
	start := time.Now()
	require.NoError(t, e.SubmitAfter(50*time.Millisecond, "delayed", func(context.Context) {
		done <- time.Now()
	}))
	select {
	case ran := <-done:
		assert.GreaterOrEqual(t, ran.Sub(start), 50*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("delayed task did not run")
	}
}

func TestCloseDrains(t *testing.T) {
	e := New("test")

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Submit("task", func(context.Context) {
			time.Sleep(10 * time.Millisecond)
			ran.Add(1)
		}))
	}
	e.Close(5 * time.Second)
	assert.Equal(t, int32(5), ran.Load())
}

func TestCloseRejectsNewTasks(t *testing.T) {
	e := New("test")
	e.Close(time.Second)

	err := e.Submit("late", func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)
	err = e.SubmitAfter(time.Millisecond, "late", func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseAbandonsDelayedTasks(t *testing.T) {
	e := New("test")

	var ran atomic.Int32
	require.NoError(t, e.SubmitAfter(time.Hour, "never", func(context.Context) {
		ran.Add(1)
	}))
	e.Close(time.Second)
	assert.Equal(t, int32(0), ran.Load())
}

func TestCloseIdempotent(t *testing.T) {
	e := New("test")
	e.Close(time.Second)
	e.Close(time.Second)
}
