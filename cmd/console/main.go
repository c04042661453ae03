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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-console/pkg/cli"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/service"
)

func main() {
	if err := run(); err != nil {
		cli.Exit(err)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	exit, err := flags.Pre(os.Args[1:], os.Stdout)
	if exit || err != nil {
		return err
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Fatal().Msgf("panic: %v", r)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	handled, err := flags.Post(ctx, cli.LocalCaller(cfg), cli.PickFolder, os.Stdout)
	if handled {
		return err
	}

	stopSvc, done, err := service.Start(cfg)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stderr, "%s running on http://localhost:%d/emulator/play\n",
		config.AppName, cfg.APIPort())

	select {
	case <-ctx.Done():
		log.Info().Msg("received signal, stopping service")
	case <-done:
		return errors.New("service stopped unexpectedly")
	}

	if err := stopSvc(); err != nil {
		log.Error().Err(err).Msg("error stopping service")
		return fmt.Errorf("error stopping service: %w", err)
	}
	return nil
}
