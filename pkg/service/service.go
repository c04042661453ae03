// Zaparoo Console
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Console.
//
// Zaparoo Console is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Console is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Console.  If not, see <http://www.gnu.org/licenses/>.

package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/api"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/kvstore"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/librarydb"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/mediascanner"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/broker"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/discovery"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/publishers"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

const subscriberBuffer = 100

func setupEnvironment(cfg *config.Instance, dataDir string) error {
	log.Info().Msg("creating data directories")
	dirs := []string{
		dataDir,
		cfg.UploadDir(dataDir),
	}
	if cfg.EmulatorDataIsLocal() {
		dirs = append(dirs, cfg.EmulatorDataPath())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func openStore(st *state.State, cfg *config.Instance, dataDir string) (*librarydb.Store, error) {
	log.Info().Str("backend", cfg.StorageBackend()).Msg("opening library store")
	kv, err := kvstore.Open(st.GetContext(), cfg.StorageBackend(), dataDir, cfg.StorageQuotaBytes())
	if err != nil {
		return nil, fmt.Errorf("failed to open library store: %w", err)
	}
	store := librarydb.New(kv, librarydb.Options{
		Mode:        cfg.PersistenceMode(),
		MaxFileSize: cfg.PersistMaxFileBytes(),
	})
	return store, nil
}

func startPublishers(cfg *config.Instance, b *broker.Broker) []*publishers.MQTTPublisher {
	var active []*publishers.MQTTPublisher
	for _, pc := range cfg.MQTTPublishers() {
		notifs, unsubscribe := b.Subscribe(subscriberBuffer)
		p := publishers.NewMQTTPublisher(pc)
		if err := p.Start(notifs); err != nil {
			log.Error().Err(err).Str("broker", pc.Broker).Msg("failed to start mqtt publisher")
			unsubscribe()
			continue
		}
		active = append(active, p)
	}
	return active
}

// Start brings up the library, the emulator bridge and the API. stop shuts
// everything down and done is closed once cleanup has finished.
func Start(cfg *config.Instance) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	dataDir := helpers.DataDir()
	if err := setupEnvironment(cfg, dataDir); err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	st, ns := state.NewState()
	ctx := st.GetContext()

	notifBroker := broker.NewBroker(ns)

	store, err := openStore(st, cfg, dataDir)
	if err != nil {
		st.StopService()
		return nil, nil, err
	}

	clock := clockwork.NewRealClock()
	emuHub := api.NewEmulatorHub()
	runtime := emulator.NewWSRuntime(emuHub)
	onEvent, onStateChange := emulatorNotifier(st.Notifications)
	bridge := emulator.NewBridge(runtime, nil, emulator.Options{
		OnEvent:       onEvent,
		OnStateChange: onStateChange,
		DefaultCore:   cfg.DefaultCore(),
		WarnSize:      cfg.WarnSizeBytes(),
	})

	var manager *library.Manager
	osFs := afero.NewOsFs()
	watcher := library.NewWatcher(osFs, clock, library.DefaultWatchDelay, func(root string) {
		manager.FolderChanged(root)
	})
	manager = library.NewManager(library.Options{
		Config: cfg,
		State:  st,
		Store:  store,
		Scanner: mediascanner.New(
			mediascanner.WithClock(clock),
			mediascanner.WithDefaultLabel(cfg.DefaultFolderLabel()),
		),
		Bridge:  bridge,
		Fs:      osFs,
		Watcher: watcher,
	})

	log.Info().Msg("restoring saved library")
	if manager.Restore(ctx) {
		log.Info().Int("games", st.Snapshot().GameCount()).Msg("library restored")
	}

	log.Info().Msg("starting mDNS discovery service")
	discoveryService := discovery.New(cfg, "/emulator/play", clock)
	if discoveryErr := discoveryService.Start(); discoveryErr != nil {
		log.Error().Err(discoveryErr).Msg("mDNS discovery failed to start (continuing without discovery)")
	}

	apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	activityNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	activePublishers := startPublishers(cfg, notifBroker)
	notifBroker.Start(ctx)

	activityDone := make(chan struct{})
	go func() {
		defer close(activityDone)
		logActivity(activityNotifications)
	}()

	log.Info().Msg("starting API service")
	apiDone := make(chan struct{})
	go func() {
		defer close(apiDone)
		err := api.Start(api.Options{
			Config:      cfg,
			State:       st,
			Library:     manager,
			Runtime:     runtime,
			EmulatorHub: emuHub,
			Uploads:     api.NewUploads(cfg.UploadDir(dataDir)),
		}, apiNotifications)
		if err != nil {
			log.Error().Err(err).Msg("API service stopped")
			st.StopService()
		}
	}()

	doneCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info().Msg("service context cancelled, running cleanup")

		discoveryService.Stop()
		for _, p := range activePublishers {
			p.Stop()
		}
		manager.Close()
		if err := emuHub.Close(); err != nil {
			log.Debug().Err(err).Msg("closing emulator hub")
		}
		<-apiDone
		<-notifBroker.Done()
		<-activityDone
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing library store")
		}

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	log.Info().
		Str("listen", cfg.APIListen()).
		Str("data", filepath.Clean(dataDir)).
		Msg("service started")

	stop = func() error {
		st.StopService()
		<-doneCh
		return nil
	}
	return stop, doneCh, nil
}
