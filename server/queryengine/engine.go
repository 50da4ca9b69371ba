package queryengine

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
	"github.com/usebloggy/bloggy/internal/observability"
	"github.com/usebloggy/bloggy/server/search"
	"github.com/usebloggy/bloggy/store"
	storecache "github.com/usebloggy/bloggy/store/cache"
)

// Store is the slice of the document store the engine reads from.
type Store interface {
	ListPosts(ctx context.Context, find *store.FindPost) ([]*store.Post, error)
	ListComments(ctx context.Context, find *store.FindComment) ([]*store.Comment, error)
}

// Index serves full-text lookups. The second return value is false when
// the index cannot serve the query and the engine must degrade.
type Index interface {
	Search(terms []string) ([]search.Match, bool)
}

// Result is the outcome of a resolved spec. Instances stored in the cache
// are shared across requests and must be treated as read-only.
type Result struct {
	Posts []*store.Post
	// Comments is populated for getById only.
	Comments []*store.Comment
	// Degraded is true when a full-text request was served by substring
	// matching because the index was not ready.
	Degraded bool
	// FromCache is true when the result was served without a document
	// store call.
	FromCache bool
}

func (r *Result) clone() *Result {
	cp := *r
	return &cp
}

// Engine resolves content requests cache-first. The cache, index manager
// and store are injected at construction; the engine owns no globals.
type Engine struct {
	store Store
	cache *storecache.Cache
	index Index
	ttl   time.Duration

	group singleflight.Group
}

// NewEngine creates a query engine.
func NewEngine(st Store, cache *storecache.Cache, index Index, ttl time.Duration) *Engine {
	return &Engine{
		store: st,
		cache: cache,
		index: index,
		ttl:   ttl,
	}
}

// Resolve executes a spec, serving from the cache when possible. Results
// are cached with the configured TTL; a TTL of zero disables write-back.
// Store failures surface as STORE_UNAVAILABLE and are never cached.
func (e *Engine) Resolve(ctx context.Context, spec *Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	metrics := observability.GlobalMetrics()
	start := time.Now()
	defer func() {
		metrics.RecordResolveDuration(time.Since(start))
	}()

	key := BuildKey(spec)
	if v, ok := e.cache.Get(ctx, key); ok {
		if cached, valid := v.(*Result); valid {
			metrics.RecordCacheHit()
			hit := cached.clone()
			hit.FromCache = true
			return hit, nil
		}
	}
	metrics.RecordCacheMiss()

	// Coalesce concurrent misses for the same key into one store query.
	v, err, _ := e.group.Do(key, func() (any, error) {
		if cached, ok := e.cache.Get(ctx, key); ok {
			if result, valid := cached.(*Result); valid {
				return result, nil
			}
		}
		// The write-back is stamped with the epoch observed before the
		// store query, so a mutation landing while the query is in flight
		// retires the entry instead of letting it mask the new content.
		epoch := e.cache.Epoch()
		result, err := e.execute(ctx, spec)
		if err != nil {
			return nil, err
		}
		// Degraded results are not cached: once the index is ready the
		// same request should be served by it, not by a cached fallback.
		if e.ttl > 0 && !result.Degraded {
			e.cache.SetAtEpoch(ctx, key, result, e.ttl, epoch)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result).clone(), nil
}

func (e *Engine) execute(ctx context.Context, spec *Spec) (*Result, error) {
	if spec.Operation == OperationSearchText {
		return e.executeSearchText(ctx, spec)
	}

	find, err := translate(spec)
	if err != nil {
		return nil, err
	}
	if spec.Limit > 0 {
		limit := spec.Limit
		find.Limit = &limit
		if spec.Offset > 0 {
			offset := spec.Offset
			find.Offset = &offset
		}
	}

	observability.GlobalMetrics().RecordStoreQuery()
	posts, err := e.store.ListPosts(ctx, find)
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to query posts", err)
	}

	result := &Result{Posts: posts}
	if spec.Operation == OperationGetByID && len(posts) > 0 {
		postID := posts[0].ID
		comments, err := e.store.ListComments(ctx, &store.FindComment{
			PostID:             &postID,
			OnlyActiveCreators: true,
		})
		if err != nil {
			return nil, qerrors.StoreUnavailable("failed to query comments", err)
		}
		result.Comments = comments
	}
	return result, nil
}

// executeSearchText serves a full-text request from the index, falling
// back to substring matching when the index is not ready. The degraded
// path is slower but never errors outright.
func (e *Engine) executeSearchText(ctx context.Context, spec *Spec) (*Result, error) {
	find, err := translate(spec)
	if err != nil {
		return nil, err
	}
	terms := normalizeTerms(spec.TextTerms)

	matches, servable := e.index.Search(terms)
	if !servable {
		find.ContentSearch = terms
		if spec.Limit > 0 {
			limit := spec.Limit
			find.Limit = &limit
			if spec.Offset > 0 {
				offset := spec.Offset
				find.Offset = &offset
			}
		}
		observability.GlobalMetrics().RecordStoreQuery()
		posts, err := e.store.ListPosts(ctx, find)
		if err != nil {
			return nil, qerrors.StoreUnavailable("failed to query posts", err)
		}
		observability.GlobalMetrics().RecordDegradedSearch()
		return &Result{Posts: posts, Degraded: true}, nil
	}

	if len(matches) == 0 {
		return &Result{Posts: []*store.Post{}}, nil
	}

	ids := make([]int32, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.PostID)
	}
	find.IDList = ids

	observability.GlobalMetrics().RecordStoreQuery()
	posts, err := e.store.ListPosts(ctx, find)
	if err != nil {
		return nil, qerrors.StoreUnavailable("failed to query posts", err)
	}

	// Reorder store results by index score; other filters may have
	// dropped some matches.
	byID := make(map[int32]*store.Post, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}
	ordered := make([]*store.Post, 0, len(posts))
	for _, m := range matches {
		if post, ok := byID[m.PostID]; ok {
			ordered = append(ordered, post)
		}
	}
	ordered = paginate(ordered, spec.Limit, spec.Offset)
	return &Result{Posts: ordered}, nil
}

// translate maps a validated spec onto the document store's find
// condition: equality clauses AND-combined, IN clauses OR-combined within
// the clause, containment matching for content. Visibility defaults
// mirror the public read path: normal posts by active authors only.
func translate(spec *Spec) (*store.FindPost, error) {
	normal := store.Normal
	find := &store.FindPost{
		RowStatus:          &normal,
		OnlyActiveCreators: true,
	}

	for _, f := range spec.Filters {
		switch f.Field {
		case FieldID:
			switch f.Operator {
			case OperatorEqual:
				id, err := parseID(f.Values[0])
				if err != nil {
					return nil, err
				}
				find.ID = &id
			case OperatorIn:
				for _, v := range f.Values {
					id, err := parseID(v)
					if err != nil {
						return nil, err
					}
					find.IDList = append(find.IDList, id)
				}
			}
		case FieldUID:
			uid := f.Values[0]
			find.UID = &uid
		case FieldCreator:
			switch f.Operator {
			case OperatorEqual:
				id, err := parseID(f.Values[0])
				if err != nil {
					return nil, err
				}
				find.CreatorID = &id
			case OperatorIn:
				for _, v := range f.Values {
					id, err := parseID(v)
					if err != nil {
						return nil, err
					}
					find.CreatorIDList = append(find.CreatorIDList, id)
				}
			}
		case FieldTag:
			switch f.Operator {
			case OperatorEqual:
				tag := f.Values[0]
				find.Tag = &tag
			case OperatorIn:
				find.TagList = append(find.TagList, f.Values...)
			}
		case FieldContent:
			for _, v := range f.Values {
				if t := normalizeText(v); t != "" {
					find.ContentSearch = append(find.ContentSearch, t)
				}
			}
		}
	}
	return find, nil
}

func parseID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, qerrors.InvalidQuery("invalid numeric id: " + s)
	}
	return int32(id), nil
}

func paginate(posts []*store.Post, limit, offset int) []*store.Post {
	if offset > 0 {
		if offset >= len(posts) {
			return []*store.Post{}
		}
		posts = posts[offset:]
	}
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}
