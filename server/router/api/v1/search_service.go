package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usebloggy/bloggy/server/queryengine"
	"github.com/usebloggy/bloggy/server/search"
)

// SearchResultPost is a post in a search result, with a short excerpt
// around the first matched term.
type SearchResultPost struct {
	PostResponse
	Snippet    string             `json:"snippet,omitempty"`
	Highlights []search.Highlight `json:"highlights,omitempty"`
}

// SearchResponse is the JSON shape of a search result.
type SearchResponse struct {
	Posts     []*SearchResultPost `json:"posts"`
	Degraded  bool                `json:"degraded"`
	FromCache bool                `json:"from_cache"`
}

// SearchPosts serves full-text and boolean search. With a q parameter
// the request is a full-text search; without one the tag/creator/contains
// parameters form a boolean filter query.
// GET /api/v1/search?q=cache+invalidation
// GET /api/v1/search?tags=go,sqlite&creators=1&contains=epoch
func (s *APIV1Service) SearchPosts(c echo.Context) error {
	spec := &queryengine.Spec{}
	spec.Limit, spec.Offset = parsePagination(c)

	if q := c.QueryParam("q"); q != "" {
		spec.Operation = queryengine.OperationSearchText
		spec.TextTerms = strings.Fields(q)
	} else {
		spec.Operation = queryengine.OperationSearchBoolean
		if tags := splitParam(c.QueryParam("tags")); len(tags) > 0 {
			spec.Filters = append(spec.Filters, queryengine.Filter{
				Field:    queryengine.FieldTag,
				Operator: queryengine.OperatorIn,
				Values:   tags,
			})
		}
		if creators := splitParam(c.QueryParam("creators")); len(creators) > 0 {
			spec.Filters = append(spec.Filters, queryengine.Filter{
				Field:    queryengine.FieldCreator,
				Operator: queryengine.OperatorIn,
				Values:   creators,
			})
		}
		if contains := c.QueryParam("contains"); contains != "" {
			spec.Filters = append(spec.Filters, queryengine.Filter{
				Field:    queryengine.FieldContent,
				Operator: queryengine.OperatorContains,
				Values:   strings.Fields(contains),
			})
		}
		if len(spec.Filters) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "search requires q or at least one filter"})
		}
	}

	result, err := s.Engine.Resolve(c.Request().Context(), spec)
	if err != nil {
		return errorResponse(c, err)
	}

	response := &SearchResponse{
		Posts:     []*SearchResultPost{},
		Degraded:  result.Degraded,
		FromCache: result.FromCache,
	}
	for _, post := range result.Posts {
		entry := &SearchResultPost{PostResponse: *convertPost(post)}
		if len(spec.TextTerms) > 0 {
			entry.Snippet, entry.Highlights = search.Snippet(post.Body, spec.TextTerms, 0)
		}
		response.Posts = append(response.Posts, entry)
	}
	return c.JSON(http.StatusOK, response)
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
