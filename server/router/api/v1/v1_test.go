package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usebloggy/bloggy/internal/profile"
	"github.com/usebloggy/bloggy/server/queryengine"
	"github.com/usebloggy/bloggy/server/search"
	"github.com/usebloggy/bloggy/server/service/content"
	"github.com/usebloggy/bloggy/store"
	storecache "github.com/usebloggy/bloggy/store/cache"
)

// memStore is an in-memory document store backing the full handler
// pipeline in tests.
type memStore struct {
	mu       sync.Mutex
	posts    []*store.Post
	comments []*store.Comment
	users    map[int32]*store.User
	nextID   int32
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int32]*store.User{
			1: {ID: 1, Username: "alice", RowStatus: store.Normal},
			2: {ID: 2, Username: "bob", RowStatus: store.Normal},
		},
	}
}

func (m *memStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if find.ID != nil {
		return m.users[*find.ID], nil
	}
	return nil, nil
}

func (m *memStore) CreatePost(_ context.Context, create *store.Post) (*store.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	create.ID = m.nextID
	create.RowStatus = store.Normal
	create.CreatedTs = time.Now().Unix()
	create.UpdatedTs = create.CreatedTs
	m.posts = append([]*store.Post{create}, m.posts...)
	return create, nil
}

func (m *memStore) ListPosts(_ context.Context, find *store.FindPost) ([]*store.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*store.Post{}
	for _, post := range m.posts {
		if find.ID != nil && post.ID != *find.ID {
			continue
		}
		if find.UID != nil && post.UID != *find.UID {
			continue
		}
		if find.RowStatus != nil && post.RowStatus != *find.RowStatus {
			continue
		}
		if len(find.CreatorIDList) > 0 {
			matched := false
			for _, id := range find.CreatorIDList {
				if post.CreatorID == id {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(find.ContentSearch) > 0 {
			haystack := strings.ToLower(post.Title + " " + post.Subtitle + " " + post.Body)
			matched := true
			for _, term := range find.ContentSearch {
				if !strings.Contains(haystack, strings.ToLower(term)) {
					matched = false
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, post)
	}
	return out, nil
}

func (m *memStore) GetPost(ctx context.Context, find *store.FindPost) (*store.Post, error) {
	list, err := m.ListPosts(ctx, find)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *memStore) UpdatePost(_ context.Context, update *store.UpdatePost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, post := range m.posts {
		if post.ID != update.ID {
			continue
		}
		if update.Title != nil {
			post.Title = *update.Title
		}
		if update.Body != nil {
			post.Body = *update.Body
		}
		if update.RowStatus != nil {
			post.RowStatus = *update.RowStatus
		}
	}
	return nil
}

func (m *memStore) DeletePost(_ context.Context, del *store.DeletePost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.posts[:0]
	for _, post := range m.posts {
		if post.ID != del.ID {
			kept = append(kept, post)
		}
	}
	m.posts = kept
	return nil
}

func (m *memStore) CreateComment(_ context.Context, create *store.Comment) (*store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	create.ID = m.nextID
	create.CreatedTs = time.Now().Unix()
	m.comments = append(m.comments, create)
	return create, nil
}

func (m *memStore) ListComments(_ context.Context, find *store.FindComment) ([]*store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*store.Comment{}
	for _, comment := range m.comments {
		if find.PostID != nil && comment.PostID != *find.PostID {
			continue
		}
		if find.UID != nil && comment.UID != *find.UID {
			continue
		}
		out = append(out, comment)
	}
	return out, nil
}

func (m *memStore) GetComment(ctx context.Context, find *store.FindComment) (*store.Comment, error) {
	list, err := m.ListComments(ctx, find)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *memStore) DeleteComment(_ context.Context, del *store.DeleteComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.comments[:0]
	for _, comment := range m.comments {
		if comment.ID != del.ID {
			kept = append(kept, comment)
		}
	}
	m.comments = kept
	return nil
}

func newTestAPI(t *testing.T) (*echo.Echo, *memStore) {
	t.Helper()

	st := newMemStore()
	cacheConfig := storecache.DefaultConfig()
	cacheConfig.Enabled = true
	cache := storecache.New(cacheConfig)
	t.Cleanup(cache.Close)

	manager := search.NewManager(st)
	engine := queryengine.NewEngine(st, cache, manager, time.Minute)
	contentService := content.NewService(st, cache, manager, nil)

	testProfile := &profile.Profile{
		Mode:         "dev",
		CacheEnabled: true,
	}

	e := echo.New()
	service := NewAPIV1Service(testProfile, nil, cache, engine, contentService, manager)
	service.Register(e)
	return e, st
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPostLifecycle(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/posts",
		`{"creator_id":1,"title":"Hello","body":"# Heading\n\nsome **markdown**","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.UID)

	t.Run("List", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/posts", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var listing ListPostsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
		require.Len(t, listing.Posts, 1)
		assert.False(t, listing.FromCache)

		rec = doRequest(e, http.MethodGet, "/api/v1/posts", "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
		assert.True(t, listing.FromCache, "second identical listing must be a cache hit")
	})

	t.Run("GetRendersMarkdown", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/posts/"+created.UID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var detail PostDetailResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
		assert.Contains(t, detail.BodyHTML, "<h1")
		assert.Contains(t, detail.BodyHTML, "<strong>")
	})

	t.Run("UpdateInvalidatesListing", func(t *testing.T) {
		rec := doRequest(e, http.MethodPatch, "/api/v1/posts/"+created.UID, `{"title":"Renamed"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doRequest(e, http.MethodGet, "/api/v1/posts", "")
		var listing ListPostsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
		assert.False(t, listing.FromCache, "mutation must invalidate the cached listing")
		require.Len(t, listing.Posts, 1)
		assert.Equal(t, "Renamed", listing.Posts[0].Title)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := doRequest(e, http.MethodDelete, "/api/v1/posts/"+created.UID, "")
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(e, http.MethodGet, "/api/v1/posts/"+created.UID, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetPost_NotFound(t *testing.T) {
	e, _ := newTestAPI(t)
	rec := doRequest(e, http.MethodGet, "/api/v1/posts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/posts",
		`{"creator_id":1,"title":"Cache epochs","body":"Epoch based invalidation is cheap."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("DegradedBeforeIndexBuild", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/search?q=epoch", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var response SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.True(t, response.Degraded)
		require.Len(t, response.Posts, 1)
		assert.NotEmpty(t, response.Posts[0].Snippet)
	})

	t.Run("IndexBackedAfterRebuild", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/admin/index/rebuild", `{}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doRequest(e, http.MethodGet, "/api/v1/search?q=epoch", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var response SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.False(t, response.Degraded)
		require.Len(t, response.Posts, 1)
	})

	t.Run("UnknownTokenizerRejected", func(t *testing.T) {
		rec := doRequest(e, http.MethodPost, "/api/v1/admin/index/rebuild", `{"tokenizer":"nope"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("BooleanByCreators", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/search?creators=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var response SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.Len(t, response.Posts, 1)

		rec = doRequest(e, http.MethodGet, "/api/v1/search?creators=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Empty(t, response.Posts)
	})

	t.Run("BooleanWithoutFilters", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/api/v1/search", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMutateMissingResources(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPatch, "/api/v1/posts/nope", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = doRequest(e, http.MethodDelete, "/api/v1/posts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/comments/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/admin/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats CacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Enabled)

	rec = doRequest(e, http.MethodGet, "/api/v1/admin/index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var descriptor search.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &descriptor))
	assert.Equal(t, search.StatusAbsent, descriptor.Status)

	rec = doRequest(e, http.MethodGet, "/api/v1/admin/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRSSFeed(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/posts",
		`{"creator_id":1,"title":"Feed me","subtitle":"rss","body":"content"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodGet, "/feed.rss", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "rss")
	assert.Contains(t, rec.Body.String(), "Feed me")
}

func TestComments(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/posts",
		`{"creator_id":1,"title":"Discussable","body":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(e, http.MethodPost, "/api/v1/posts/"+created.UID+"/comments",
		`{"creator_id":2,"content":"first"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment CommentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))

	rec = doRequest(e, http.MethodGet, "/api/v1/posts/"+created.UID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail PostDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "first", detail.Comments[0].Content)

	rec = doRequest(e, http.MethodDelete, "/api/v1/comments/"+comment.UID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
