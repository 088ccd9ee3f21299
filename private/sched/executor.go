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

// Package sched provides a single-worker serial executor. Tasks submitted
// to one executor never overlap, which lets the owner mutate shared state
// from its tasks without locks.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andrea-athirat/corda/pkg/log"
)

// ErrClosed is returned when submitting to a closed executor.
var ErrClosed = errors.New("executor closed")

type task struct {
	name string
	fn   func(context.Context)
}

// Executor runs submitted tasks sequentially on a single worker goroutine.
// Deferred tasks are timer-driven and join the queue when their delay
// expires; they are abandoned when the executor closes first.
type Executor struct {
	logger   log.Logger
	tasks    chan task
	stop     chan struct{}
	loopDone chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	pending  sync.WaitGroup

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// New creates and starts an executor. The name tags all log entries of the
// worker.
func New(name string) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		logger:   log.New("executor", name),
		tasks:    make(chan task, 64),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[*time.Timer]struct{}),
	}
	go func() {
		defer log.HandlePanic()
		e.runLoop()
	}()
	return e
}

// Submit enqueues a task for execution. Tasks run in submission order.
func (e *Executor) Submit(name string, fn func(context.Context)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.pending.Add(1)
	e.mu.Unlock()

	select {
	case e.tasks <- task{name: name, fn: fn}:
		return nil
	case <-e.stop:
		e.pending.Done()
		return ErrClosed
	}
}

// SubmitAfter enqueues a task after the given delay. Pending delayed tasks
// are dropped when the executor closes before the delay expires.
func (e *Executor) SubmitAfter(d time.Duration, name string, fn func(context.Context)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		defer log.HandlePanic()
		e.mu.Lock()
		delete(e.timers, timer)
		e.mu.Unlock()
		if err := e.Submit(name, fn); err != nil {
			e.logger.Debug("Dropping delayed task after close", "task", name)
		}
	})
	e.timers[timer] = struct{}{}
	return nil
}

// Close stops accepting new tasks, cancels pending delayed tasks, and
// drains the queue, waiting up to timeout for clean completion before the
// worker is torn down.
func (e *Executor) Close(timeout time.Duration) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for timer := range e.timers {
		timer.Stop()
	}
	e.timers = nil
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer log.HandlePanic()
		e.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(timeout):
		e.logger.Error("Executor drain timed out", "timeout", timeout)
	}
	close(e.stop)
	e.cancel()
	<-e.loopDone
}

func (e *Executor) runLoop() {
	defer close(e.loopDone)
	defer e.cancel()
	for {
		select {
		case <-e.stop:
			return
		case t := <-e.tasks:
			e.run(t)
		}
	}
}

func (e *Executor) run(t task) {
	defer e.pending.Done()
	select {
	// Make sure the stop case is evaluated first, so that queued tasks are
	// not started once shutdown has been decided.
	case <-e.stop:
		return
	default:
		t.fn(e.ctx)
	}
}
