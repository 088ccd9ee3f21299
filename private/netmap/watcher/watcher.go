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

// Package watcher scans a directory for out-of-band node descriptor files.
// Operators drop signed descriptors of peers there to make them reachable
// without the zone registry; descriptors discovered this way are owned by
// the watcher and never removed by remote reconciliation.
package watcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andrea-athirat/corda/pkg/log"
	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

const filePrefix = "nodeinfo-"

// DefaultScanInterval is the default delay between directory scans.
const DefaultScanInterval = 5 * time.Second

// Watcher periodically scans a directory for node descriptor files and
// emits newly discovered descriptors on its update stream.
type Watcher struct {
	dir      string
	interval time.Duration
	logger   log.Logger
	updates  chan netmap.NodeInfo
	stop     chan struct{}
	loopDone chan struct{}

	mu        sync.Mutex
	processed map[netmap.Hash]struct{}
}

// New creates a watcher over the given directory and starts scanning. The
// directory is created if it does not exist.
func New(dir string, interval time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, serrors.Wrap("creating node info directory", err, "dir", dir)
	}
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	w := &Watcher{
		dir:       dir,
		interval:  interval,
		logger:    log.New("component", "nodeinfo_watcher"),
		updates:   make(chan netmap.NodeInfo, 64),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		processed: make(map[netmap.Hash]struct{}),
	}
	go func() {
		defer log.HandlePanic()
		w.runLoop()
	}()
	return w, nil
}

// Updates returns the stream of newly discovered descriptors. The stream is
// closed when the watcher shuts down.
func (w *Watcher) Updates() <-chan netmap.NodeInfo {
	return w.updates
}

// ProcessedHashes returns a snapshot of the content hashes of all
// descriptors discovered via the directory.
func (w *Watcher) ProcessedHashes() map[netmap.Hash]struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := make(map[netmap.Hash]struct{}, len(w.processed))
	for h := range w.processed {
		snapshot[h] = struct{}{}
	}
	return snapshot
}

// Save persists the signed descriptor into the watched directory, named by
// its content hash. The write is atomic.
func (w *Watcher) Save(env *netmap.SignedEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return serrors.Wrap("encoding signed node info", err)
	}
	name := filePrefix + env.Hash().String()
	tmp := filepath.Join(w.dir, name+".tmp")
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return serrors.Wrap("writing node info file", err, "file", tmp)
	}
	if err := os.Rename(tmp, filepath.Join(w.dir, name)); err != nil {
		return serrors.Wrap("renaming node info file", err, "file", name)
	}
	return nil
}

// Close stops the scan loop and closes the update stream.
func (w *Watcher) Close() {
	close(w.stop)
	<-w.loopDone
}

func (w *Watcher) runLoop() {
	defer close(w.loopDone)
	defer close(w.updates)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.scan()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("Scanning node info directory failed", "dir", w.dir, "err", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) ||
			strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		w.processFile(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) processFile(file string) {
	raw, err := os.ReadFile(file)
	if err != nil {
		w.logger.Error("Reading node info file failed", "file", file, "err", err)
		return
	}
	var env netmap.SignedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		w.logger.Error("Parsing node info file failed", "file", file, "err", err)
		return
	}
	info, err := netmap.VerifiedNodeInfo(&env)
	if err != nil {
		w.logger.Error("Node info file failed verification", "file", file, "err", err)
		return
	}
	hash := env.Hash()

	w.mu.Lock()
	_, seen := w.processed[hash]
	if !seen {
		w.processed[hash] = struct{}{}
	}
	w.mu.Unlock()
	if seen {
		return
	}
	select {
	case w.updates <- info:
		w.logger.Info("Discovered node info file", "file", file, "hash", hash)
	case <-w.stop:
	}
}
