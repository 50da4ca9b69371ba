// Package server assembles the HTTP server around the query engine,
// content service and search index.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/usebloggy/bloggy/internal/profile"
	"github.com/usebloggy/bloggy/server/queryengine"
	apiv1 "github.com/usebloggy/bloggy/server/router/api/v1"
	"github.com/usebloggy/bloggy/server/search"
	"github.com/usebloggy/bloggy/server/service/content"
	"github.com/usebloggy/bloggy/store"
	storecache "github.com/usebloggy/bloggy/store/cache"
)

type Server struct {
	echoServer *echo.Echo

	Profile *profile.Profile
	Store   *store.Store

	cache     *storecache.Cache
	search    *search.Manager
	engine    *queryengine.Engine
	content   *content.Service
	epochSync *storecache.EpochSync
}

// NewServer wires the full read/write pipeline: store, response cache,
// search index, query engine, content service, HTTP routes. When a
// Redis address is configured, cache epochs are synchronized across
// workers.
func NewServer(ctx context.Context, profile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	echoServer.Use(middleware.Recover())

	cacheConfig := storecache.DefaultConfig()
	cacheConfig.Enabled = profile.CacheEnabled
	cacheConfig.DefaultTTL = profile.CacheTTL
	cacheConfig.MaxItems = profile.CacheCapacity
	cache := storecache.New(cacheConfig)

	searchManager := search.NewManager(storeInstance)
	engine := queryengine.NewEngine(storeInstance, cache, searchManager, profile.CacheTTL)

	var epochSync *storecache.EpochSync
	var broadcaster content.Broadcaster
	if profile.CacheRedisAddr != "" {
		sync, err := storecache.NewEpochSync(profile.CacheRedisAddr, "", cache)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create epoch sync")
		}
		if err := sync.Start(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to start epoch sync")
		}
		epochSync = sync
		broadcaster = sync
	}

	contentService := content.NewService(storeInstance, cache, searchManager, broadcaster)

	s := &Server{
		echoServer: echoServer,
		Profile:    profile,
		Store:      storeInstance,
		cache:      cache,
		search:     searchManager,
		engine:     engine,
		content:    contentService,
		epochSync:  epochSync,
	}

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiService := apiv1.NewAPIV1Service(profile, storeInstance, cache, engine, contentService, searchManager)
	apiService.Register(echoServer)

	return s, nil
}

// Start builds the initial search index and begins serving. The initial
// build failing is not fatal: searches degrade to substring matching
// until a rebuild succeeds.
func (s *Server) Start(ctx context.Context) error {
	if err := s.search.Rebuild(ctx, s.Profile.TokenizerName, s.Profile.TokenizerModulePath); err != nil {
		slog.Warn("initial index build failed, full-text search degraded", "error", err)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)
	return s.echoServer.Start(address)
}

// Shutdown gracefully stops the server and releases resources.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if s.epochSync != nil {
		if err := s.epochSync.Close(); err != nil {
			slog.Error("failed to close epoch sync", "error", err)
		}
	}
	s.cache.Close()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown")
}
