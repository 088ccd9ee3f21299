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

// Package updater owns the network-map reconciliation loop of one node. It
// periodically fetches the signed network map from the zone registry,
// reconciles the local descriptor cache against it, publishes local node
// info changes, and drives the two-phase network parameters update protocol
// with operator consent.
//
// All state mutations run on a single serial executor, so no iteration
// overlaps another and no internal locking is needed on the reconciled
// state. Descriptors discovered through the file watcher are owned by the
// watcher and never removed by remote reconciliation.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andrea-athirat/corda/pkg/log"
	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/private/netmap/nodedb"
	"github.com/andrea-athirat/corda/private/sched"
)

// ParametersFileName is the file under the base directory holding accepted
// but not yet active network parameters.
const ParametersFileName = "network-parameters-update"

const (
	defaultRetryInterval = time.Minute
	defaultDrainTimeout  = 50 * time.Second
)

// Errors returned by the updater.
var (
	// ErrOffline indicates the operation needs a registry client but the
	// updater runs in offline mode.
	ErrOffline = errors.New("no registry client configured")
	// ErrUpdateConflict indicates an acceptance for a parameters update the
	// updater has not observed as pending.
	ErrUpdateConflict = errors.New("parameters update conflict")
)

// RegistryClient is the slice of the zone registry client the updater
// consumes.
type RegistryClient interface {
	Publish(ctx context.Context, env *netmap.SignedEnvelope) error
	AckParametersUpdate(ctx context.Context, env *netmap.SignedEnvelope) error
	NetworkMap(ctx context.Context) (netmap.NetworkMap, time.Duration, error)
	NodeInfo(ctx context.Context, hash netmap.Hash) (netmap.NodeInfo, error)
	NetworkParameters(ctx context.Context, hash netmap.Hash) (*netmap.SignedEnvelope, error)
}

// NodeInfoWatcher is the slice of the node info directory watcher the
// updater consumes.
type NodeInfoWatcher interface {
	Updates() <-chan netmap.NodeInfo
	Save(env *netmap.SignedEnvelope) error
	ProcessedHashes() map[netmap.Hash]struct{}
}

// SignFunc signs serialized bytes with the node's identity key.
type SignFunc func(raw []byte) (*netmap.SignedEnvelope, error)

// ParametersUpdateInfo is the event emitted when the zone announces new
// network parameters.
type ParametersUpdateInfo struct {
	Hash           netmap.Hash
	Params         netmap.NetworkParameters
	Description    string
	UpdateDeadline time.Time
}

// DataFeed is the snapshot-plus-stream view of pending parameter updates.
type DataFeed struct {
	Current *ParametersUpdateInfo
	Updates <-chan ParametersUpdateInfo
	Cancel  func()
}

// Config configures an Updater.
type Config struct {
	// DB is the local node descriptor cache.
	DB nodedb.DB
	// Watcher provides descriptors dropped out-of-band into the node info
	// directory.
	Watcher NodeInfoWatcher
	// Client talks to the zone registry. A nil client puts the updater into
	// offline mode: only the watcher feeds the cache.
	Client RegistryClient
	// CurrentParametersHash is the hash of the parameters the node runs on.
	CurrentParametersHash netmap.Hash
	// BaseDir is the directory accepted parameter updates are persisted to.
	BaseDir string
	// RetryInterval is the delay before a failed poll, publish or ack is
	// retried. Defaults to one minute.
	RetryInterval time.Duration
	// DrainTimeout bounds how long Close waits for in-flight tasks.
	// Defaults to 50 seconds.
	DrainTimeout time.Duration
	// ExitFn is invoked when the zone advertises parameters the node does
	// not run on. The node must not continue under disagreed consensus;
	// the default logs and exits the process.
	ExitFn func(msg string)
	// Metrics is optional.
	Metrics *Metrics
}

type pendingUpdate struct {
	update netmap.ParametersUpdate
	signed *netmap.SignedEnvelope
	params netmap.NetworkParameters
}

// Updater reconciles the local view of the network map with the zone
// registry.
type Updater struct {
	cfg    Config
	logger log.Logger
	exec   *sched.Executor
	feed   *feed

	// pending is written on the executor and read via AcceptNewParameters.
	// Track reads the feed's latest event instead.
	pendingMu sync.Mutex
	pending   *pendingUpdate

	mu          sync.Mutex
	subscribed  bool
	watcherStop chan struct{}
	watcherDone chan struct{}
}

// New creates an updater. Call Subscribe to start reconciliation.
func New(cfg Config) (*Updater, error) {
	if cfg.DB == nil {
		return nil, serrors.New("node descriptor cache is required")
	}
	if cfg.Watcher == nil {
		return nil, serrors.New("node info watcher is required")
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	logger := log.New("component", "netmap_updater")
	if cfg.ExitFn == nil {
		cfg.ExitFn = func(msg string) {
			logger.Error(msg)
			os.Exit(1)
		}
	}
	return &Updater{
		cfg:    cfg,
		logger: logger,
		exec:   sched.New("netmap-updater"),
		feed:   newFeed(),
	}, nil
}

// Track returns the currently pending parameters update, if any, together
// with the live stream of future announcements.
func (u *Updater) Track() DataFeed {
	current, updates, cancel := u.feed.subscribe()
	return DataFeed{Current: current, Updates: updates, Cancel: cancel}
}

// UpdateNodeInfo publishes a changed node descriptor: it is signed,
// inserted into the cache, persisted via the watcher, and pushed to the
// registry when one is configured. Re-publications of identical state
// (ignoring the serial) are no-ops.
func (u *Updater) UpdateNodeInfo(info netmap.NodeInfo, sign SignFunc) error {
	previous, ok, err := u.cfg.DB.NodeByLegalIdentity(info.LegalIdentity())
	if err != nil {
		return serrors.Wrap("reading previous node info", err)
	}
	if ok && previous.Equal(info, true) {
		u.logger.Debug("Node info unchanged, skipping publication",
			"identity", info.LegalIdentity())
		return nil
	}
	raw, err := info.Encode()
	if err != nil {
		return serrors.Wrap("encoding node info", err)
	}
	env, err := sign(raw)
	if err != nil {
		return serrors.Wrap("signing node info", err)
	}
	if err := u.cfg.DB.AddNode(info); err != nil {
		return serrors.Wrap("caching node info", err)
	}
	if err := u.cfg.Watcher.Save(env); err != nil {
		return serrors.Wrap("persisting node info", err)
	}
	if u.cfg.Client != nil {
		u.schedulePublish(env)
	}
	u.logger.Info("Node info updated", "identity", info.LegalIdentity(),
		"hash", env.Hash(), "serial", info.Serial)
	return nil
}

// schedulePublish submits a publish task that reschedules itself at the
// retry interval until it succeeds.
func (u *Updater) schedulePublish(env *netmap.SignedEnvelope) {
	var task func(ctx context.Context)
	task = func(ctx context.Context) {
		if err := u.cfg.Client.Publish(ctx, env); err != nil {
			u.cfg.Metrics.publishRetry()
			u.logger.Error("Publishing node info failed, retrying",
				"hash", env.Hash(), "retry_in", u.cfg.RetryInterval, "err", err)
			if err := u.exec.SubmitAfter(u.cfg.RetryInterval, "publish-retry",
				task); err != nil {
				u.logger.Debug("Dropping publish retry after close", "hash", env.Hash())
			}
			return
		}
		u.logger.Info("Node info published", "hash", env.Hash())
	}
	if err := u.exec.Submit("publish", task); err != nil {
		u.logger.Debug("Dropping publish after close", "hash", env.Hash())
	}
}

// Subscribe starts consuming the watcher stream and, when a registry client
// is configured, the polling loop. It must be called at most once.
func (u *Updater) Subscribe() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.subscribed {
		return serrors.New("already subscribed to the network map")
	}
	u.subscribed = true
	u.watcherStop = make(chan struct{})
	u.watcherDone = make(chan struct{})
	stop, done := u.watcherStop, u.watcherDone
	go func() {
		defer log.HandlePanic()
		u.forwardWatcherUpdates(stop, done)
	}()
	if u.cfg.Client != nil {
		var poll func(ctx context.Context)
		poll = func(ctx context.Context) {
			delay := u.pollOnce(ctx)
			if err := u.exec.SubmitAfter(delay, "netmap-poll", poll); err != nil {
				u.logger.Debug("Stopping poll loop after close")
			}
		}
		if err := u.exec.Submit("netmap-poll", poll); err != nil {
			return serrors.Wrap("starting poll loop", err)
		}
	}
	return nil
}

func (u *Updater) forwardWatcherUpdates(stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	updates := u.cfg.Watcher.Updates()
	for {
		select {
		case <-stop:
			return
		case info, ok := <-updates:
			if !ok {
				return
			}
			if err := u.exec.Submit("watcher-update", func(context.Context) {
				if err := u.cfg.DB.AddNode(info); err != nil {
					u.logger.Error("Caching watched node info failed",
						"identity", info.LegalIdentity(), "err", err)
				}
			}); err != nil {
				return
			}
		}
	}
}

// pollOnce runs one reconciliation iteration and returns the delay until
// the next one: the cache timeout the registry advertises on success, the
// retry interval on failure.
func (u *Updater) pollOnce(ctx context.Context) time.Duration {
	nm, cacheTimeout, err := u.cfg.Client.NetworkMap(ctx)
	if err != nil {
		u.cfg.Metrics.pollResult("error")
		u.logger.Error("Fetching network map failed",
			"retry_in", u.cfg.RetryInterval, "err", err)
		return u.cfg.RetryInterval
	}
	if nm.ParametersUpdate != nil {
		u.handleParametersUpdate(ctx, *nm.ParametersUpdate)
	}
	if nm.NetworkParameterHash != u.cfg.CurrentParametersHash {
		u.cfg.Metrics.pollResult("mismatch")
		u.cfg.ExitFn("Node is running on network parameters the zone no longer " +
			"advertises; refusing to continue under disagreed consensus. " +
			"zone=" + nm.NetworkParameterHash.String() +
			" local=" + u.cfg.CurrentParametersHash.String())
		return u.cfg.RetryInterval
	}
	if err := u.reconcileNodeInfos(ctx, nm); err != nil {
		u.cfg.Metrics.pollResult("error")
		u.logger.Error("Reconciling node infos failed",
			"retry_in", u.cfg.RetryInterval, "err", err)
		return u.cfg.RetryInterval
	}
	u.cfg.Metrics.pollResult("ok")
	if cacheTimeout <= 0 {
		return u.cfg.RetryInterval
	}
	return cacheTimeout
}

func (u *Updater) reconcileNodeInfos(ctx context.Context, nm netmap.NetworkMap) error {
	cached, err := u.cfg.DB.AllHashes()
	if err != nil {
		return serrors.Wrap("listing cached node infos", err)
	}
	cachedSet := make(map[netmap.Hash]struct{}, len(cached))
	for _, h := range cached {
		cachedSet[h] = struct{}{}
	}
	remoteSet := make(map[netmap.Hash]struct{}, len(nm.NodeInfoHashes))
	for _, h := range nm.NodeInfoHashes {
		remoteSet[h] = struct{}{}
	}

	for _, h := range nm.NodeInfoHashes {
		if _, ok := cachedSet[h]; ok {
			continue
		}
		info, err := u.cfg.Client.NodeInfo(ctx, h)
		if err != nil {
			// Individual failures are retried on the next iteration.
			u.logger.Error("Fetching node info failed", "hash", h, "err", err)
			continue
		}
		if err := u.cfg.DB.AddNode(info); err != nil {
			u.logger.Error("Caching node info failed", "hash", h, "err", err)
			continue
		}
		u.cfg.Metrics.nodeInfoOp("add")
		u.logger.Debug("Added node info", "hash", h, "identity", info.LegalIdentity())
	}

	// Descriptors discovered through the watcher stay even when the remote
	// map does not list them.
	watcherOwned := u.cfg.Watcher.ProcessedHashes()
	for _, h := range cached {
		if _, ok := remoteSet[h]; ok {
			continue
		}
		if _, ok := watcherOwned[h]; ok {
			continue
		}
		info, ok, err := u.cfg.DB.NodeByHash(h)
		if err != nil {
			u.logger.Error("Resolving node info failed", "hash", h, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if err := u.cfg.DB.RemoveNode(info); err != nil {
			u.logger.Error("Removing node info failed", "hash", h, "err", err)
			continue
		}
		u.cfg.Metrics.nodeInfoOp("remove")
		u.logger.Debug("Removed node info", "hash", h, "identity", info.LegalIdentity())
	}
	return nil
}

// handleParametersUpdate fetches newly announced parameters and publishes
// the announcement to trackers. Fetch failures leave the state unchanged;
// the next poll retries.
func (u *Updater) handleParametersUpdate(ctx context.Context, upd netmap.ParametersUpdate) {
	u.pendingMu.Lock()
	already := u.pending != nil &&
		u.pending.update.NewParametersHash == upd.NewParametersHash
	u.pendingMu.Unlock()
	if already {
		return
	}
	env, err := u.cfg.Client.NetworkParameters(ctx, upd.NewParametersHash)
	if err != nil {
		u.logger.Error("Fetching announced network parameters failed",
			"hash", upd.NewParametersHash, "err", err)
		return
	}
	var params netmap.NetworkParameters
	if err := env.UnmarshalPayload(&params); err != nil {
		u.logger.Error("Parsing announced network parameters failed",
			"hash", upd.NewParametersHash, "err", err)
		return
	}

	u.pendingMu.Lock()
	u.pending = &pendingUpdate{update: upd, signed: env, params: params}
	u.pendingMu.Unlock()
	u.cfg.Metrics.pendingUpdate(true)
	u.logger.Info("Network parameters update announced",
		"hash", upd.NewParametersHash, "description", upd.Description,
		"flag_day", upd.UpdateDeadline)
	u.feed.publish(ParametersUpdateInfo{
		Hash:           upd.NewParametersHash,
		Params:         params,
		Description:    upd.Description,
		UpdateDeadline: upd.UpdateDeadline,
	})
}

// AcceptNewParameters records the operator's consent to the pending
// parameters update: the signed parameters are persisted under the base
// directory and the signed acceptance is pushed to the registry, retrying
// at the retry interval until it succeeds.
func (u *Updater) AcceptNewParameters(hash netmap.Hash, sign SignFunc) error {
	if u.cfg.Client == nil {
		return ErrOffline
	}
	u.pendingMu.Lock()
	pending := u.pending
	u.pendingMu.Unlock()
	if pending == nil || pending.update.NewParametersHash != hash {
		return serrors.Join(ErrUpdateConflict, nil, "hash", hash)
	}
	if err := u.persistParameters(pending.signed); err != nil {
		return err
	}
	ack, err := sign(hash[:])
	if err != nil {
		return serrors.Wrap("signing parameters acceptance", err)
	}
	u.scheduleAck(ack, hash)
	return nil
}

func (u *Updater) persistParameters(env *netmap.SignedEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return serrors.Wrap("encoding signed parameters", err)
	}
	target := filepath.Join(u.cfg.BaseDir, ParametersFileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return serrors.Wrap("writing parameters file", err, "file", tmp)
	}
	if err := os.Rename(tmp, target); err != nil {
		return serrors.Wrap("replacing parameters file", err, "file", target)
	}
	u.logger.Info("Accepted network parameters persisted", "file", target)
	return nil
}

func (u *Updater) scheduleAck(ack *netmap.SignedEnvelope, hash netmap.Hash) {
	var task func(ctx context.Context)
	task = func(ctx context.Context) {
		if err := u.cfg.Client.AckParametersUpdate(ctx, ack); err != nil {
			u.cfg.Metrics.ackRetry()
			u.logger.Error("Acking parameters update failed, retrying",
				"hash", hash, "retry_in", u.cfg.RetryInterval, "err", err)
			if err := u.exec.SubmitAfter(u.cfg.RetryInterval, "ack-retry",
				task); err != nil {
				u.logger.Debug("Dropping ack retry after close", "hash", hash)
			}
			return
		}
		u.logger.Info("Parameters update acknowledged", "hash", hash)
	}
	if err := u.exec.Submit("ack-parameters", task); err != nil {
		u.logger.Debug("Dropping ack after close", "hash", hash)
	}
}

// Close stops consuming the watcher stream first so inbound updates cease,
// then drains the executor, preferring clean completion of in-flight work.
func (u *Updater) Close() {
	u.mu.Lock()
	stop, done := u.watcherStop, u.watcherDone
	u.watcherStop = nil
	u.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	u.exec.Close(u.cfg.DrainTimeout)
	u.feed.close()
}
