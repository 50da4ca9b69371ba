package v1

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/usebloggy/bloggy/server/queryengine"
	"github.com/usebloggy/bloggy/server/service/content"
	"github.com/usebloggy/bloggy/store"
)

// markdown renders post bodies for the detail endpoint. GFM covers the
// tables and strikethrough commonly used in posts.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PostResponse is the JSON shape of a post in list responses.
type PostResponse struct {
	UID       string   `json:"uid"`
	CreatorID int32    `json:"creator_id"`
	CreatedTs int64    `json:"created_ts"`
	UpdatedTs int64    `json:"updated_ts"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// PostDetailResponse adds the raw and rendered body plus comments.
type PostDetailResponse struct {
	PostResponse
	Body     string             `json:"body"`
	BodyHTML string             `json:"body_html"`
	Comments []*CommentResponse `json:"comments"`
}

// CommentResponse is the JSON shape of a comment.
type CommentResponse struct {
	UID       string `json:"uid"`
	CreatorID int32  `json:"creator_id"`
	CreatedTs int64  `json:"created_ts"`
	Content   string `json:"content"`
}

// ListPostsResponse is the JSON shape of a post listing.
type ListPostsResponse struct {
	Posts     []*PostResponse `json:"posts"`
	FromCache bool            `json:"from_cache"`
}

func convertPost(post *store.Post) *PostResponse {
	return &PostResponse{
		UID:       post.UID,
		CreatorID: post.CreatorID,
		CreatedTs: post.CreatedTs,
		UpdatedTs: post.UpdatedTs,
		Title:     post.Title,
		Subtitle:  post.Subtitle,
		ImageURL:  post.ImageURL,
		Tags:      post.Tags,
	}
}

func convertComment(comment *store.Comment) *CommentResponse {
	return &CommentResponse{
		UID:       comment.UID,
		CreatorID: comment.CreatorID,
		CreatedTs: comment.CreatedTs,
		Content:   comment.Content,
	}
}

// ListPosts returns published posts, newest first.
// GET /api/v1/posts?creator=1&tag=go&limit=20&offset=0
func (s *APIV1Service) ListPosts(c echo.Context) error {
	spec := &queryengine.Spec{Operation: queryengine.OperationList}

	if creator := c.QueryParam("creator"); creator != "" {
		spec.Filters = append(spec.Filters, queryengine.Filter{
			Field:    queryengine.FieldCreator,
			Operator: queryengine.OperatorEqual,
			Values:   []string{creator},
		})
	}
	if tag := c.QueryParam("tag"); tag != "" {
		spec.Filters = append(spec.Filters, queryengine.Filter{
			Field:    queryengine.FieldTag,
			Operator: queryengine.OperatorEqual,
			Values:   []string{tag},
		})
	}
	spec.Limit, spec.Offset = parsePagination(c)

	result, err := s.Engine.Resolve(c.Request().Context(), spec)
	if err != nil {
		return errorResponse(c, err)
	}

	response := &ListPostsResponse{Posts: []*PostResponse{}, FromCache: result.FromCache}
	for _, post := range result.Posts {
		response.Posts = append(response.Posts, convertPost(post))
	}
	return c.JSON(http.StatusOK, response)
}

// GetPost returns one post with rendered body and comments.
// GET /api/v1/posts/:uid
func (s *APIV1Service) GetPost(c echo.Context) error {
	spec := &queryengine.Spec{
		Operation: queryengine.OperationGetByID,
		Filters: []queryengine.Filter{{
			Field:    queryengine.FieldUID,
			Operator: queryengine.OperatorEqual,
			Values:   []string{c.Param("uid")},
		}},
	}

	result, err := s.Engine.Resolve(c.Request().Context(), spec)
	if err != nil {
		return errorResponse(c, err)
	}
	if len(result.Posts) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "post not found"})
	}

	post := result.Posts[0]
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(post.Body), &buf); err != nil {
		return errorResponse(c, err)
	}

	response := &PostDetailResponse{
		PostResponse: *convertPost(post),
		Body:         post.Body,
		BodyHTML:     buf.String(),
		Comments:     []*CommentResponse{},
	}
	for _, comment := range result.Comments {
		response.Comments = append(response.Comments, convertComment(comment))
	}
	return c.JSON(http.StatusOK, response)
}

// CreatePostRequest is the JSON body for post creation.
type CreatePostRequest struct {
	CreatorID int32    `json:"creator_id"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle"`
	Body      string   `json:"body"`
	ImageURL  string   `json:"image_url"`
	Tags      []string `json:"tags"`
}

// CreatePost creates a post.
// POST /api/v1/posts
func (s *APIV1Service) CreatePost(c echo.Context) error {
	request := &CreatePostRequest{}
	if err := c.Bind(request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}

	post, err := s.Content.CreatePost(c.Request().Context(), &content.CreatePostRequest{
		CreatorID: request.CreatorID,
		Title:     request.Title,
		Subtitle:  request.Subtitle,
		Body:      request.Body,
		ImageURL:  request.ImageURL,
		Tags:      request.Tags,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, convertPost(post))
}

// UpdatePostRequest is the JSON body for a partial post update.
type UpdatePostRequest struct {
	Title     *string  `json:"title"`
	Subtitle  *string  `json:"subtitle"`
	Body      *string  `json:"body"`
	ImageURL  *string  `json:"image_url"`
	RowStatus *string  `json:"row_status"`
	Tags      []string `json:"tags"`
}

// UpdatePost applies a partial update.
// PATCH /api/v1/posts/:uid
func (s *APIV1Service) UpdatePost(c echo.Context) error {
	request := &UpdatePostRequest{}
	if err := c.Bind(request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}

	update := &content.UpdatePostRequest{
		Title:    request.Title,
		Subtitle: request.Subtitle,
		Body:     request.Body,
		ImageURL: request.ImageURL,
		Tags:     request.Tags,
	}
	if request.RowStatus != nil {
		rowStatus := store.RowStatus(*request.RowStatus)
		if rowStatus != store.Normal && rowStatus != store.Archived {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid row status"})
		}
		update.RowStatus = &rowStatus
	}

	post, err := s.Content.UpdatePost(c.Request().Context(), c.Param("uid"), update)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, convertPost(post))
}

// DeletePost deletes a post and its comments.
// DELETE /api/v1/posts/:uid
func (s *APIV1Service) DeletePost(c echo.Context) error {
	if err := s.Content.DeletePost(c.Request().Context(), c.Param("uid")); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateCommentRequest is the JSON body for comment creation.
type CreateCommentRequest struct {
	CreatorID int32  `json:"creator_id"`
	Content   string `json:"content"`
}

// CreateComment attaches a comment to a post.
// POST /api/v1/posts/:uid/comments
func (s *APIV1Service) CreateComment(c echo.Context) error {
	request := &CreateCommentRequest{}
	if err := c.Bind(request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}

	comment, err := s.Content.CreateComment(c.Request().Context(), &content.CreateCommentRequest{
		PostUID:   c.Param("uid"),
		CreatorID: request.CreatorID,
		Content:   request.Content,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, convertComment(comment))
}

// DeleteComment deletes a comment.
// DELETE /api/v1/comments/:uid
func (s *APIV1Service) DeleteComment(c echo.Context) error {
	if err := s.Content.DeleteComment(c.Request().Context(), c.Param("uid")); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parsePagination(c echo.Context) (limit, offset int) {
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
