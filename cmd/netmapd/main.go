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

// netmapd runs the network-map synchronization loop of one node: it keeps
// the local node descriptor cache reconciled with the compatibility zone
// registry and exposes metrics and health endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/andrea-athirat/corda/pkg/log"
	"github.com/andrea-athirat/corda/pkg/scrypto/certkit"
	"github.com/andrea-athirat/corda/private/netmap/client"
	"github.com/andrea-athirat/corda/private/netmap/config"
	"github.com/andrea-athirat/corda/private/netmap/nodedb/sqlite"
	"github.com/andrea-athirat/corda/private/netmap/updater"
	"github.com/andrea-athirat/corda/private/netmap/watcher"
)

func main() {
	configFile := flag.String("config", "netmapd.toml", "Configuration file")
	sample := flag.Bool("sample", false, "Print a sample configuration and exit")
	flag.Parse()

	if *sample {
		var cfg config.Config
		if err := cfg.Sample(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}
	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := log.Setup(cfg.Logging); err != nil {
		return err
	}
	logger := log.New("id", cfg.General.ID)

	db, err := sqlite.New(cfg.NetworkMap.DBFile)
	if err != nil {
		return err
	}
	defer db.Close()

	w, err := watcher.New(cfg.NetworkMap.NodeInfoDir,
		time.Duration(cfg.NetworkMap.ScanInterval))
	if err != nil {
		return err
	}
	defer w.Close()

	var registry updater.RegistryClient
	if cfg.NetworkMap.ZoneURL != "" {
		root, err := certkit.ReadPEMCert(cfg.NetworkMap.TrustedRootFile)
		if err != nil {
			return err
		}
		registry = client.New(cfg.NetworkMap.ZoneURL, root)
		logger.Info("Registry client configured", "zone", cfg.NetworkMap.ZoneURL)
	} else {
		logger.Info("No zone URL configured, running offline")
	}

	paramsHash, err := cfg.ParametersHash()
	if err != nil {
		return err
	}
	metrics := updater.NewMetrics(prometheus.DefaultRegisterer)
	u, err := updater.New(updater.Config{
		DB:                    db,
		Watcher:               w,
		Client:                registry,
		CurrentParametersHash: paramsHash,
		BaseDir:               cfg.General.BaseDir,
		RetryInterval:         time.Duration(cfg.NetworkMap.RetryInterval),
		Metrics:               metrics,
	})
	if err != nil {
		return err
	}
	defer u.Close()
	if err := u.Subscribe(); err != nil {
		return err
	}
	logger.Info("Network map updater started")

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		router := chi.NewRouter()
		router.Handle("/metrics", promhttp.Handler())
		router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: router}
		g.Go(func() error {
			defer log.HandlePanic()
			logger.Info("Admin endpoint listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			defer log.HandlePanic()
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(
				context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		defer log.HandlePanic()
		<-ctx.Done()
		logger.Info("Shutting down")
		return nil
	})
	return g.Wait()
}
