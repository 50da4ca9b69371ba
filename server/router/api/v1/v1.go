// Package v1 exposes the HTTP API. Read endpoints go through the query
// engine so they are cache-aware; write endpoints go through the content
// service so invalidation runs before the response is sent.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/usebloggy/bloggy/internal/profile"
	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
	bloggymw "github.com/usebloggy/bloggy/server/middleware"
	"github.com/usebloggy/bloggy/server/queryengine"
	"github.com/usebloggy/bloggy/server/search"
	"github.com/usebloggy/bloggy/server/service/content"
	"github.com/usebloggy/bloggy/store"
	storecache "github.com/usebloggy/bloggy/store/cache"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Cache   *storecache.Cache
	Engine  *queryengine.Engine
	Content *content.Service
	Search  *search.Manager
}

func NewAPIV1Service(
	profile *profile.Profile,
	store *store.Store,
	cache *storecache.Cache,
	engine *queryengine.Engine,
	contentService *content.Service,
	searchManager *search.Manager,
) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Cache:   cache,
		Engine:  engine,
		Content: contentService,
		Search:  searchManager,
	}
}

// Register wires the API routes onto the Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(middleware.CORS())

	// Every mutation invalidates the whole response cache, so write
	// routes are rate limited per client.
	writeLimit := bloggymw.NewRateLimiter(10, 20).Middleware()

	apiGroup.GET("/posts", s.ListPosts)
	apiGroup.GET("/posts/:uid", s.GetPost)
	apiGroup.POST("/posts", s.CreatePost, writeLimit)
	apiGroup.PATCH("/posts/:uid", s.UpdatePost, writeLimit)
	apiGroup.DELETE("/posts/:uid", s.DeletePost, writeLimit)

	apiGroup.POST("/posts/:uid/comments", s.CreateComment, writeLimit)
	apiGroup.DELETE("/comments/:uid", s.DeleteComment, writeLimit)

	apiGroup.GET("/search", s.SearchPosts)

	apiGroup.GET("/admin/index", s.GetIndexStatus)
	apiGroup.POST("/admin/index/rebuild", s.RebuildIndex)
	apiGroup.GET("/admin/cache", s.GetCacheStats)
	apiGroup.GET("/admin/metrics", s.GetMetrics)

	echoServer.GET("/feed.rss", s.GetRSSFeed)
}

// errorResponse maps a resolution error onto an HTTP status. Malformed
// requests are the caller's fault; everything else is a server-side
// condition.
func errorResponse(c echo.Context, err error) error {
	code := qerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case qerrors.ErrCodeInvalidQuery:
		status = http.StatusBadRequest
	case qerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case qerrors.ErrCodeStoreUnavailable, qerrors.ErrCodeInvalidationFailed:
		status = http.StatusServiceUnavailable
	case qerrors.ErrCodeTokenizerUnavailable:
		status = http.StatusBadRequest
	case qerrors.ErrCodeIndexNotReady:
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", code, "error", err)
	}
	return c.JSON(status, map[string]string{"code": string(code), "message": err.Error()})
}
