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

package discovery

import (
	"context"
	"net"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// ServiceType is the DNS-SD service type advertised for the console web
// front end.
const ServiceType = "_zaparoo-console._tcp"

const (
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
	fallbackName     = "zaparoo-console"
)

var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

// filterInterfaces keeps interfaces that are up, multicast capable and not
// loopback or virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

// TxtRecords returns the DNS-SD TXT records describing this instance.
func TxtRecords(cfg *config.Instance, playPath string) []string {
	return []string{
		"id=" + cfg.DeviceID(),
		"version=" + config.AppVersion,
		"play=" + playPath,
	}
}

// Service advertises the console over mDNS so other devices on the LAN can
// open the library without knowing its address.
type Service struct {
	server       *zeroconf.Server
	cfg          *config.Instance
	clock        clockwork.Clock
	cancelFunc   context.CancelFunc
	playPath     string
	instanceName string
	stopped      bool
	mu           syncutil.Mutex
}

func New(cfg *config.Instance, playPath string, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:      cfg,
		clock:    clock,
		playPath: playPath,
	}
}

// Start registers the service. When the network is not ready it keeps
// retrying in the background for a while.
func (s *Service) Start() error {
	if !s.cfg.DiscoveryEnabled() {
		log.Info().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	s.instanceName = s.resolveInstanceName(os.Hostname)

	if s.tryRegister() {
		return nil
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Dur("maxDuration", maxRetryDuration).
		Msg("mDNS registration failed, retrying in background")

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)

	return nil
}

func (s *Service) tryRegister() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return false
	}
	ifaces = filterInterfaces(ifaces)
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return false
	}

	port := s.cfg.APIPort()
	server, err := zeroconf.Register(
		s.instanceName,
		ServiceType,
		"local.",
		port,
		TxtRecords(s.cfg, s.playPath),
		ifaces,
	)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		server.Shutdown()
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instanceName).
		Int("port", port).
		Str("type", ServiceType).
		Msg("mDNS service advertising started")

	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.After(maxRetryDuration)

	for {
		select {
		case <-ticker.Chan():
			if s.tryRegister() {
				log.Info().Msg("mDNS registration succeeded after retry")
				return
			}
		case <-deadline:
			log.Warn().Msg("mDNS registration retry timed out, discovery will not be available")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop withdraws the advertisement. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	if s.server != nil {
		log.Debug().Msg("stopping mDNS service advertising")
		s.server.Shutdown()
		s.server = nil
	}
}

func (s *Service) InstanceName() string {
	return s.instanceName
}

// resolveInstanceName prefers the configured name, then the hostname.
func (s *Service) resolveInstanceName(hostname func() (string, error)) string {
	if name := s.cfg.DiscoveryInstanceName(); name != "" {
		return name
	}

	host, err := hostname()
	if err == nil && host != "" {
		return host
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback")
	}
	if id := s.cfg.DeviceID(); len(id) >= 8 {
		return fallbackName + "-" + id[:8]
	}
	return fallbackName
}
