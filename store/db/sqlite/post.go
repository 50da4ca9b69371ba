package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/usebloggy/bloggy/store"
)

func (d *DB) CreatePost(ctx context.Context, create *store.Post) (*store.Post, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	fields := []string{"uid", "creator_id", "title", "subtitle", "body", "image_url"}
	placeholderValues := []any{
		create.UID, create.CreatorID, create.Title, create.Subtitle, create.Body, create.ImageURL,
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO post (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts, row_status`

	if err := tx.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := replacePostTags(ctx, tx, create.ID, create.Tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return create, nil
}

func (d *DB) ListPosts(ctx context.Context, find *store.FindPost) ([]*store.Post, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "post.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "post.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "post.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "post.row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IDList; len(v) > 0 {
		list := []string{}
		for _, id := range v {
			list = append(list, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "post.id IN ("+strings.Join(list, ", ")+")")
	}
	if v := find.CreatorIDList; len(v) > 0 {
		list := []string{}
		for _, id := range v {
			list = append(list, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "post.creator_id IN ("+strings.Join(list, ", ")+")")
	}
	if v := find.Tag; v != nil {
		where = append(where, "EXISTS (SELECT 1 FROM post_tag WHERE post_tag.post_id = post.id AND post_tag.tag = "+placeholder(len(args)+1)+")")
		args = append(args, *v)
	}
	if v := find.TagList; len(v) > 0 {
		list := []string{}
		for _, tag := range v {
			list = append(list, placeholder(len(args)+1))
			args = append(args, tag)
		}
		where = append(where, "EXISTS (SELECT 1 FROM post_tag WHERE post_tag.post_id = post.id AND post_tag.tag IN ("+strings.Join(list, ", ")+"))")
	}
	for _, term := range find.ContentSearch {
		pattern := "%" + term + "%"
		where = append(where, "(post.title LIKE "+placeholder(len(args)+1)+" OR post.subtitle LIKE "+placeholder(len(args)+2)+" OR post.body LIKE "+placeholder(len(args)+3)+")")
		args = append(args, pattern, pattern, pattern)
	}
	if find.OnlyActiveCreators {
		where = append(where, "EXISTS (SELECT 1 FROM user WHERE user.id = post.creator_id AND user.row_status = 'NORMAL')")
	}

	query := `
		SELECT
			post.id,
			post.uid,
			post.creator_id,
			post.created_ts,
			post.updated_ts,
			post.row_status,
			post.title,
			post.subtitle,
			post.body,
			post.image_url,
			GROUP_CONCAT(post_tag.tag) AS tags
		FROM post
		LEFT JOIN post_tag ON post_tag.post_id = post.id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY post.id
		ORDER BY post.created_ts DESC, post.id DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if find.Offset != nil {
			query += fmt.Sprintf(" OFFSET %d", *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	list := []*store.Post{}
	for rows.Next() {
		var post store.Post
		var tags sql.NullString
		if err := rows.Scan(
			&post.ID,
			&post.UID,
			&post.CreatorID,
			&post.CreatedTs,
			&post.UpdatedTs,
			&post.RowStatus,
			&post.Title,
			&post.Subtitle,
			&post.Body,
			&post.ImageURL,
			&tags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if tags.Valid && tags.String != "" {
			post.Tags = strings.Split(tags.String, ",")
		}
		list = append(list, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return list, nil
}

func (d *DB) UpdatePost(ctx context.Context, update *store.UpdatePost) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Subtitle; v != nil {
		set, args = append(set, "subtitle = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Body; v != nil {
		set, args = append(set, "body = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ImageURL; v != nil {
		set, args = append(set, "image_url = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) > 0 {
		args = append(args, update.ID)
		stmt := `UPDATE post SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}
	}

	if update.Tags != nil {
		if err := replacePostTags(ctx, tx, update.ID, update.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *DB) DeletePost(ctx context.Context, delete *store.DeletePost) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM post WHERE id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tag WHERE post_id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete post tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM comment WHERE post_id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete post comments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func replacePostTags(ctx context.Context, tx *sql.Tx, postID int32, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tag WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("failed to clear post tags: %w", err)
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO post_tag (post_id, tag) VALUES (?, ?)", postID, tag); err != nil {
			return fmt.Errorf("failed to insert post tag: %w", err)
		}
	}
	return nil
}
