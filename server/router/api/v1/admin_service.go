package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usebloggy/bloggy/internal/observability"
)

// CacheStatsResponse reports the response cache's live state.
type CacheStatsResponse struct {
	Enabled bool  `json:"enabled"`
	Size    int   `json:"size"`
	Epoch   int64 `json:"epoch"`
}

// GetCacheStats returns the response cache state.
// GET /api/v1/admin/cache
func (s *APIV1Service) GetCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, CacheStatsResponse{
		Enabled: s.Profile.CacheEnabled,
		Size:    s.Cache.Size(),
		Epoch:   s.Cache.Epoch(),
	})
}

// GetMetrics returns pipeline counters and resolve latency percentiles.
// GET /api/v1/admin/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, observability.GlobalMetrics().GetSnapshot())
}

// GetIndexStatus returns the search index descriptor.
// GET /api/v1/admin/index
func (s *APIV1Service) GetIndexStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Search.Descriptor())
}

// RebuildIndexRequest selects the tokenizer for the rebuild. Empty
// fields keep the configured defaults.
type RebuildIndexRequest struct {
	Tokenizer           string `json:"tokenizer"`
	TokenizerModulePath string `json:"tokenizer_module_path"`
}

// RebuildIndex rebuilds the search index from the document store. The
// rebuild is synchronous; reads keep being served from the previous
// index (or the degraded path) until the new one is published.
// POST /api/v1/admin/index/rebuild
func (s *APIV1Service) RebuildIndex(c echo.Context) error {
	request := &RebuildIndexRequest{}
	if err := c.Bind(request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}
	tokenizer := request.Tokenizer
	if tokenizer == "" {
		tokenizer = s.Profile.TokenizerName
	}
	modulePath := request.TokenizerModulePath
	if modulePath == "" {
		modulePath = s.Profile.TokenizerModulePath
	}

	if err := s.Search.Rebuild(c.Request().Context(), tokenizer, modulePath); err != nil {
		return errorResponse(c, err)
	}

	descriptor := s.Search.Descriptor()
	slog.Info("search index rebuilt",
		"tokenizer", descriptor.TokenizerName,
		"documents", descriptor.DocumentCount)
	return c.JSON(http.StatusOK, descriptor)
}
