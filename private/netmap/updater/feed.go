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

package updater

import (
	"sync"
)

const feedBuffer = 8

// feed is a many-consumer broadcast channel with latest-value-on-subscribe
// semantics. Slow subscribers lose the oldest buffered event.
type feed struct {
	mu      sync.Mutex
	current *ParametersUpdateInfo
	subs    map[int]chan ParametersUpdateInfo
	nextID  int
}

func newFeed() *feed {
	return &feed{subs: make(map[int]chan ParametersUpdateInfo)}
}

// subscribe returns the latest published event, if any, together with the
// live stream and a cancel function.
func (f *feed) subscribe() (*ParametersUpdateInfo, <-chan ParametersUpdateInfo, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan ParametersUpdateInfo, feedBuffer)
	f.subs[id] = ch
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
	}
	return f.current, ch, cancel
}

// publish stores the event as the current snapshot and broadcasts it.
func (f *feed) publish(info ParametersUpdateInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = &info
	for _, ch := range f.subs {
		for {
			select {
			case ch <- info:
			default:
				// Drop the oldest buffered event and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// close drops all subscribers.
func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
