// Package content provides post and comment management. Every mutation
// runs its invalidation hooks synchronously before it is acknowledged:
// the response cache epoch is bumped (and broadcast to other workers when
// epoch sync is configured) and the search index is marked stale, so a
// read issued immediately after a successful write never observes the
// pre-write cached state.
package content

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
	"github.com/usebloggy/bloggy/internal/observability"
	"github.com/usebloggy/bloggy/store"
)

// MaxTagsPerPost bounds the tag list of a single post.
const MaxTagsPerPost = 20

// Store is the interface for store operations needed by the content service.
type Store interface {
	CreatePost(ctx context.Context, create *store.Post) (*store.Post, error)
	GetPost(ctx context.Context, find *store.FindPost) (*store.Post, error)
	UpdatePost(ctx context.Context, update *store.UpdatePost) error
	DeletePost(ctx context.Context, delete *store.DeletePost) error
	CreateComment(ctx context.Context, create *store.Comment) (*store.Comment, error)
	GetComment(ctx context.Context, find *store.FindComment) (*store.Comment, error)
	DeleteComment(ctx context.Context, delete *store.DeleteComment) error
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
}

// Invalidator bumps the local cache epoch.
type Invalidator interface {
	InvalidateAll() int64
}

// Broadcaster propagates a cache invalidation to other workers.
type Broadcaster interface {
	Broadcast(ctx context.Context) error
}

// IndexNotifier is told that indexed content changed.
type IndexNotifier interface {
	OnContentChanged(postID int32)
}

// Service executes content mutations with synchronous invalidation.
type Service struct {
	store       Store
	cache       Invalidator
	index       IndexNotifier
	broadcaster Broadcaster
}

// NewService creates a content service. broadcaster may be nil for
// single-process deployments.
func NewService(st Store, cache Invalidator, index IndexNotifier, broadcaster Broadcaster) *Service {
	return &Service{
		store:       st,
		cache:       cache,
		index:       index,
		broadcaster: broadcaster,
	}
}

// CreatePostRequest carries the fields of a new post.
type CreatePostRequest struct {
	CreatorID int32
	Title     string
	Subtitle  string
	Body      string
	ImageURL  string
	Tags      []string
}

// CreatePost creates a post and invalidates derived state.
func (s *Service) CreatePost(ctx context.Context, req *CreatePostRequest) (*store.Post, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, qerrors.InvalidQuery("post title must not be empty")
	}
	if err := s.checkCreator(ctx, req.CreatorID); err != nil {
		return nil, err
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	post, err := s.store.CreatePost(ctx, &store.Post{
		UID:       shortuuid.New(),
		CreatorID: req.CreatorID,
		Title:     strings.TrimSpace(req.Title),
		Subtitle:  strings.TrimSpace(req.Subtitle),
		Body:      req.Body,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		Tags:      tags,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create post")
	}

	if err := s.invalidate(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePostRequest carries a partial post update. Nil fields are left
// unchanged; a non-nil Tags replaces the whole tag list.
type UpdatePostRequest struct {
	Title     *string
	Subtitle  *string
	Body      *string
	ImageURL  *string
	RowStatus *store.RowStatus
	Tags      []string
}

// UpdatePost applies a partial update to the post identified by uid.
func (s *Service) UpdatePost(ctx context.Context, uid string, req *UpdatePostRequest) (*store.Post, error) {
	post, err := s.getPostByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, qerrors.InvalidQuery("post title must not be empty")
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	update := &store.UpdatePost{
		ID:        post.ID,
		UpdatedTs: &now,
		Title:     req.Title,
		Subtitle:  req.Subtitle,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		RowStatus: req.RowStatus,
		Tags:      tags,
	}
	if err := s.store.UpdatePost(ctx, update); err != nil {
		return nil, errors.Wrap(err, "failed to update post")
	}

	if err := s.invalidate(ctx, post.ID); err != nil {
		return nil, err
	}
	return s.getPostByUID(ctx, uid)
}

// DeletePost deletes the post identified by uid together with its
// comments.
func (s *Service) DeletePost(ctx context.Context, uid string) error {
	post, err := s.getPostByUID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, &store.DeletePost{ID: post.ID}); err != nil {
		return errors.Wrap(err, "failed to delete post")
	}
	return s.invalidate(ctx, post.ID)
}

// CreateCommentRequest carries the fields of a new comment.
type CreateCommentRequest struct {
	PostUID   string
	CreatorID int32
	Content   string
}

// CreateComment attaches a comment to an existing post.
func (s *Service) CreateComment(ctx context.Context, req *CreateCommentRequest) (*store.Comment, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, qerrors.InvalidQuery("comment content must not be empty")
	}
	if err := s.checkCreator(ctx, req.CreatorID); err != nil {
		return nil, err
	}
	post, err := s.getPostByUID(ctx, req.PostUID)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.CreateComment(ctx, &store.Comment{
		UID:       shortuuid.New(),
		PostID:    post.ID,
		CreatorID: req.CreatorID,
		Content:   strings.TrimSpace(req.Content),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create comment")
	}

	if err := s.invalidate(ctx, post.ID); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment deletes the comment identified by uid.
func (s *Service) DeleteComment(ctx context.Context, uid string) error {
	comment, err := s.store.GetComment(ctx, &store.FindComment{UID: &uid})
	if err != nil {
		return errors.Wrap(err, "failed to get comment")
	}
	if comment == nil {
		return qerrors.NotFound("comment not found: " + uid)
	}
	if err := s.store.DeleteComment(ctx, &store.DeleteComment{ID: comment.ID}); err != nil {
		return errors.Wrap(err, "failed to delete comment")
	}
	return s.invalidate(ctx, comment.PostID)
}

// invalidate runs the synchronous invalidation hooks: cache epoch bump,
// optional cross-worker broadcast, index staleness. A broadcast failure
// fails the mutation, otherwise other workers would keep serving reads
// from a retired epoch.
func (s *Service) invalidate(ctx context.Context, postID int32) error {
	epoch := s.cache.InvalidateAll()
	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx); err != nil {
			return qerrors.InvalidationFailed("failed to broadcast cache invalidation", err)
		}
	}
	s.index.OnContentChanged(postID)
	observability.GlobalMetrics().RecordInvalidation()
	slog.Debug("content changed, derived state invalidated", "post", postID, "epoch", epoch)
	return nil
}

func (s *Service) getPostByUID(ctx context.Context, uid string) (*store.Post, error) {
	post, err := s.store.GetPost(ctx, &store.FindPost{UID: &uid})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get post")
	}
	if post == nil {
		return nil, qerrors.NotFound("post not found: " + uid)
	}
	return post, nil
}

// checkCreator rejects mutations attributed to an unknown or archived
// author. Posts by such authors would be silently hidden by the
// active-creator visibility filter on every read path.
func (s *Service) checkCreator(ctx context.Context, creatorID int32) error {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &creatorID})
	if err != nil {
		return errors.Wrap(err, "failed to get creator")
	}
	if user == nil {
		return qerrors.InvalidQuery("unknown creator id")
	}
	if user.RowStatus != store.Normal {
		return qerrors.InvalidQuery("creator is archived")
	}
	return nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return tags, nil
	}
	if len(tags) > MaxTagsPerPost {
		return nil, qerrors.InvalidQuery("too many tags on post")
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}
