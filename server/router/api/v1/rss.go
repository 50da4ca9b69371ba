package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/usebloggy/bloggy/server/queryengine"
)

const rssItemLimit = 20

// GetRSSFeed serves the newest posts as RSS. The listing goes through
// the query engine, so feed readers polling the endpoint hit the cache.
// GET /feed.rss
func (s *APIV1Service) GetRSSFeed(c echo.Context) error {
	result, err := s.Engine.Resolve(c.Request().Context(), &queryengine.Spec{
		Operation: queryengine.OperationList,
		Limit:     rssItemLimit,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	baseURL := s.Profile.InstanceURL
	if baseURL == "" {
		baseURL = "http://" + c.Request().Host
	}

	feed := &feeds.Feed{
		Title:   "Bloggy",
		Link:    &feeds.Link{Href: baseURL},
		Created: time.Now(),
	}
	for _, post := range result.Posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          post.UID,
			Title:       post.Title,
			Description: post.Subtitle,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/posts/%s", baseURL, post.UID)},
			Created:     time.Unix(post.CreatedTs, 0),
			Updated:     time.Unix(post.UpdatedTs, 0),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml", []byte(rss))
}
