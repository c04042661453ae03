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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/methods"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

const (
	EmulatorSocketPath = "/emulator/ws"
	emulatorDataRoute  = "/emulator/data"
	maxParamsSize      = 1 << 20
	shutdownTimeout    = 5 * time.Second
)

type methodFunc func(requests.RequestEnv) (any, error)

var methodMap = map[string]methodFunc{
	models.MethodPlatforms:      methods.HandlePlatforms,
	models.MethodLibrary:        methods.HandleLibrary,
	models.MethodLibraryScan:    methods.HandleLibraryScan,
	models.MethodLibraryReload:  methods.HandleLibraryReload,
	models.MethodLibraryRescan:  methods.HandleLibraryRescan,
	models.MethodLibraryReset:   methods.HandleLibraryReset,
	models.MethodLibraryCancel:  methods.HandleLibraryCancel,
	models.MethodCursor:         methods.HandleCursor,
	models.MethodCursorUpdate:   methods.HandleCursorUpdate,
	models.MethodCursorMove:     methods.HandleCursorMove,
	models.MethodLaunch:         methods.HandleLaunch,
	models.MethodSession:        methods.HandleSession,
	models.MethodSessionCommand: methods.HandleSessionCommand,
	models.MethodSessionClose:   methods.HandleSessionClose,
	models.MethodSettings:       methods.HandleSettings,
	models.MethodSettingsUpdate: methods.HandleSettingsUpdate,
	models.MethodVersion:        methods.HandleVersion,
}

type Options struct {
	Config  *config.Instance
	State   *state.State
	Library *library.Manager
	Runtime *emulator.WSRuntime
	// EmulatorHub carries the emulator page protocol. It must be the
	// broadcaster Runtime was created with.
	EmulatorHub *melody.Melody
	Uploads     *methods.Uploads
}

type Server struct {
	opts          Options
	router        chi.Router
	ui            *melody.Melody
	apiLimiter    *middleware.IPRateLimiter
	uploadLimiter *middleware.IPRateLimiter
}

// NewEmulatorHub returns the websocket hub for emulator pages.
func NewEmulatorHub() *melody.Melody {
	return melody.New()
}

// NewUploads returns upload handling rooted at dir.
func NewUploads(dir string) *methods.Uploads {
	return methods.NewUploads(afero.NewBasePathFs(afero.NewOsFs(), dir), nil)
}

func NewServer(opts Options) *Server {
	s := &Server{
		opts:          opts,
		ui:            melody.New(),
		apiLimiter:    middleware.NewIPRateLimiter(middleware.APILimit),
		uploadLimiter: middleware.NewIPRateLimiter(middleware.UploadLimit),
	}
	s.ui.Upgrader.CheckOrigin = s.checkOrigin
	s.ui.HandleMessage(middleware.WebSocketRateLimitHandler(s.apiLimiter, s.handleWSMessage))

	if opts.EmulatorHub != nil && opts.Runtime != nil {
		opts.EmulatorHub.HandleConnect(func(session *melody.Session) {
			msg, ok := opts.Runtime.PendingMessage()
			if !ok {
				return
			}
			if err := session.Write(msg); err != nil {
				log.Error().Err(err).Msg("sending pending game to emulator page")
			}
		})
		opts.EmulatorHub.HandleMessage(func(_ *melody.Session, msg []byte) {
			if err := opts.Runtime.HandleMessage(msg); err != nil {
				log.Warn().Err(err).Msg("invalid message from emulator page")
			}
		})
	}

	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range s.opts.Config.AllowedOrigins() {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	log.Warn().Str("origin", origin).Msg("rejected websocket origin")
	return false
}

func (s *Server) env(r *http.Request, params json.RawMessage) requests.RequestEnv {
	return requests.RequestEnv{
		Context: r.Context(),
		Config:  s.opts.Config,
		State:   s.opts.State,
		Library: s.opts.Library,
		Params:  params,
		IsLocal: middleware.IsLoopbackAddr(r.RemoteAddr),
	}
}

func writeResult(w http.ResponseWriter, resp any, err error) {
	if err != nil {
		writeMethodError(w, err)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	methods.WriteJSON(w, http.StatusOK, resp)
}

// rest adapts a method handler to HTTP. The request body, if any, is passed
// as the method params.
func (s *Server) rest(fn methodFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxParamsSize))
		if err != nil {
			methods.WriteError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		var params json.RawMessage
		if len(bytes.TrimSpace(body)) > 0 {
			params = body
		}
		resp, err := fn(s.env(r, params))
		writeResult(w, resp, err)
	}
}

func (s *Server) handleCursorDirection(w http.ResponseWriter, r *http.Request) {
	params, err := json.Marshal(models.MoveCursorParams{Direction: chi.URLParam(r, "direction")})
	if err != nil {
		methods.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := methods.HandleCursorMove(s.env(r, params))
	writeResult(w, resp, err)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	resp, err := methods.HandleLibraryIngest(s.env(r, nil), r)
	writeResult(w, resp, err)
}

func (s *Server) handleEmulatorPage(w http.ResponseWriter, _ *http.Request) {
	dataPath := s.opts.Config.EmulatorDataPath()
	if s.opts.Config.EmulatorDataIsLocal() {
		dataPath = emulatorDataRoute + "/"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := emulator.RenderPage(w, emulator.PageData{
		Title:      config.AppName,
		DataPath:   dataPath,
		SocketPath: EmulatorSocketPath,
	})
	if err != nil {
		log.Error().Err(err).Msg("rendering emulator page")
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.Config.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ui.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.HTTPRateLimitMiddleware(s.uploadLimiter)).
			Post("/library/ingest", s.handleIngest)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.NoCache)
			r.Use(chimiddleware.Timeout(config.APIRequestTimeout))
			r.Use(middleware.HTTPRateLimitMiddleware(s.apiLimiter))

			r.Get("/platforms", s.rest(methods.HandlePlatforms))
			r.Get("/library", s.rest(methods.HandleLibrary))
			r.Delete("/library", s.rest(methods.HandleLibraryReset))
			r.Post("/library/scan", s.rest(methods.HandleLibraryScan))
			r.Post("/library/reload", s.rest(methods.HandleLibraryReload))
			r.Post("/library/rescan", s.rest(methods.HandleLibraryRescan))
			r.Post("/library/cancel", s.rest(methods.HandleLibraryCancel))
			r.Get("/cursor", s.rest(methods.HandleCursor))
			r.Put("/cursor", s.rest(methods.HandleCursorUpdate))
			r.Post("/cursor/{direction}", s.handleCursorDirection)
			r.Post("/launch", s.rest(methods.HandleLaunch))
			r.Get("/session", s.rest(methods.HandleSession))
			r.Post("/session/command", s.rest(methods.HandleSessionCommand))
			r.Delete("/session", s.rest(methods.HandleSessionClose))
			r.Get("/settings", s.rest(methods.HandleSettings))
			r.Put("/settings", s.rest(methods.HandleSettingsUpdate))
			r.Get("/version", s.rest(methods.HandleVersion))
		})
	})

	if s.opts.Uploads != nil {
		r.With(middleware.HTTPRateLimitMiddleware(s.uploadLimiter)).
			Post("/upload", s.opts.Uploads.HandleUpload)
		r.Post("/cleanup", s.opts.Uploads.HandleCleanup)
		r.Get(methods.UploadsRoute+"/*", s.opts.Uploads.FileServer().ServeHTTP)
	}

	if s.opts.Library != nil {
		r.Get("/roms/{token}/{name}", methods.HandleRom(s.opts.Library.Bridge().Refs()))
	}

	r.Get("/emulator/play", s.handleEmulatorPage)
	if s.opts.EmulatorHub != nil {
		r.Get(EmulatorSocketPath, func(w http.ResponseWriter, r *http.Request) {
			if err := s.opts.EmulatorHub.HandleRequest(w, r); err != nil {
				log.Error().Err(err).Msg("handling emulator websocket request")
			}
		})
	}
	if s.opts.Config.EmulatorDataIsLocal() {
		dataFs := afero.NewBasePathFs(afero.NewOsFs(), s.opts.Config.EmulatorDataPath())
		r.Get(emulatorDataRoute+"/*", http.StripPrefix(
			emulatorDataRoute, http.FileServer(afero.NewHttpFs(dataFs)),
		).ServeHTTP)
	}

	return r
}

// BroadcastNotifications forwards state notifications to UI clients until
// ctx is done.
func (s *Server) BroadcastNotifications(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping notification broadcast")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			req := models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			}
			data, err := json.Marshal(req)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}
			if err := s.ui.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Start serves the API until the state context is cancelled.
func Start(opts Options, notifications <-chan models.Notification) error {
	s := NewServer(opts)
	ctx := opts.State.GetContext()

	s.apiLimiter.StartCleanup(ctx)
	s.uploadLimiter.StartCleanup(ctx)
	go s.BroadcastNotifications(ctx, notifications)

	srv := &http.Server{
		Addr:              opts.Config.APIListen(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutting down http server")
		}
		if err := s.ui.Close(); err != nil {
			log.Error().Err(err).Msg("closing websocket hub")
		}
	}()

	log.Info().Msgf("starting http server on %s", srv.Addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
