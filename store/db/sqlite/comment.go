package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/usebloggy/bloggy/store"
)

func (d *DB) CreateComment(ctx context.Context, create *store.Comment) (*store.Comment, error) {
	fields := []string{"uid", "post_id", "creator_id", "content"}
	placeholderValues := []any{create.UID, create.PostID, create.CreatorID, create.Content}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO comment (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return create, nil
}

func (d *DB) ListComments(ctx context.Context, find *store.FindComment) ([]*store.Comment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "comment.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "comment.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PostID; v != nil {
		where, args = append(where, "comment.post_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "comment.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.OnlyActiveCreators {
		where = append(where, "EXISTS (SELECT 1 FROM user WHERE user.id = comment.creator_id AND user.row_status = 'NORMAL')")
	}

	query := `
		SELECT
			comment.id,
			comment.uid,
			comment.post_id,
			comment.creator_id,
			comment.created_ts,
			comment.content
		FROM comment
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY comment.created_ts ASC, comment.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	list := []*store.Comment{}
	for rows.Next() {
		var comment store.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.UID,
			&comment.PostID,
			&comment.CreatorID,
			&comment.CreatedTs,
			&comment.Content,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		list = append(list, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteComment(ctx context.Context, delete *store.DeleteComment) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM comment WHERE id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
