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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/client"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers"
)

var ErrFlagValue = errors.New("flag requires a value")

// Caller sends one API method to the running service.
type Caller func(ctx context.Context, method, params string) (string, error)

type Flags struct {
	Version *bool
	Scan    *string
	Pick    *bool
	List    *bool
	Reset   *bool
	API     *string
	Daemon  *bool
	set     *flag.FlagSet
}

// SetupFlags defines the console flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		set: fs,
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Scan: fs.String(
			"scan",
			"",
			"scan a ROM folder into the library of the running service",
		),
		Pick: fs.Bool(
			"pick",
			false,
			"choose a ROM folder with the system dialog and scan it",
		),
		List: fs.Bool(
			"list",
			false,
			"print the current library",
		),
		Reset: fs.Bool(
			"reset",
			false,
			"clear the saved library",
		),
		API: fs.String(
			"api",
			"",
			"send method:params to the API and print the response",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run the service in the foreground logging to stderr",
		),
	}
}

func (f *Flags) isPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no environment. It reports
// whether the program should exit.
func (f *Flags) Pre(args []string, out io.Writer) (exit bool, err error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}
	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s v%s\n", config.AppName, config.AppVersion)
		return true, nil
	}
	return false, nil
}

// PickFolder opens the native folder picker.
func PickFolder() (string, error) {
	path, err := dialog.Directory().Title("Select ROM Folder").Browse()
	if err != nil {
		return "", fmt.Errorf("no folder selected: %w", err)
	}
	return path, nil
}

func scanParams(path string) (string, error) {
	data, err := json.Marshal(models.ScanParams{Path: path})
	if err != nil {
		return "", fmt.Errorf("error encoding params: %w", err)
	}
	return string(data), nil
}

func (f *Flags) scan(ctx context.Context, call Caller, out io.Writer, path string) error {
	params, err := scanParams(path)
	if err != nil {
		return err
	}
	resp, err := call(ctx, models.MethodLibraryScan, params)
	if err != nil {
		return fmt.Errorf("error scanning folder: %w", err)
	}
	return printLibrary(out, resp)
}

func printLibrary(out io.Writer, resp string) error {
	var lib models.LibraryResponse
	if err := json.Unmarshal([]byte(resp), &lib); err != nil {
		return fmt.Errorf("error decoding library: %w", err)
	}
	return WriteLibrary(out, &lib)
}

// Post handles flags that talk to the running service. It reports whether
// a flag was handled, in which case the program should exit.
func (f *Flags) Post(ctx context.Context, call Caller, pick func() (string, error), out io.Writer) (bool, error) {
	switch {
	case f.isPassed("scan"):
		if *f.Scan == "" {
			return true, fmt.Errorf("scan: %w", ErrFlagValue)
		}
		return true, f.scan(ctx, call, out, *f.Scan)
	case *f.Pick:
		path, err := pick()
		if err != nil {
			return true, err
		}
		return true, f.scan(ctx, call, out, path)
	case *f.List:
		resp, err := call(ctx, models.MethodLibrary, "")
		if err != nil {
			return true, fmt.Errorf("error reading library: %w", err)
		}
		return true, printLibrary(out, resp)
	case *f.Reset:
		if _, err := call(ctx, models.MethodLibraryReset, ""); err != nil {
			return true, fmt.Errorf("error resetting library: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Library cleared")
		return true, nil
	case f.isPassed("api"):
		if *f.API == "" {
			return true, fmt.Errorf("api: %w", ErrFlagValue)
		}
		method, params, _ := strings.Cut(*f.API, ":")
		resp, err := call(ctx, method, params)
		if err != nil {
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	}
	return false, nil
}

// LocalCaller calls the service running on this machine.
func LocalCaller(cfg *config.Instance) Caller {
	return func(ctx context.Context, method, params string) (string, error) {
		return client.LocalClient(ctx, cfg, method, params)
	}
}

// Setup initializes directories, logging and the user config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	if err := helpers.EnsureDirectories(helpers.ConfigDir(), helpers.DataDir()); err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	if err := helpers.InitLogging(helpers.LogDir(), writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := telemetry.Init(cfg); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// Exit prints err and exits with status 1 when err is set.
func Exit(err error) {
	if err == nil {
		os.Exit(0)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	telemetry.Close()
	os.Exit(1)
}
