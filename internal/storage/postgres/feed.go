// internal/storage/postgres/feed.go
package postgres

import (
	"context"
	"fmt"

	"studio-settlement/internal/domain"
)

func (s *Storage) AddFeedItem(ctx context.Context, item domain.FeedItem) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO feed_items (kind, actor_id, project_id, message, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		RETURNING id
	`, string(item.Kind), item.ActorID, item.ProjectID, item.Message, nullIfZero(item.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, translate(err, "add feed item")
	}
	return id, nil
}

// ListFeed returns newest items first. beforeID of 0 starts from the top.
func (s *Storage) ListFeed(ctx context.Context, limit int, beforeID int64) ([]domain.FeedItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, actor_id, project_id, message, created_at
		FROM feed_items
		WHERE $2::bigint = 0 OR id < $2
		ORDER BY id DESC
		LIMIT $1
	`, limit, beforeID)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	items := []domain.FeedItem{}
	for rows.Next() {
		var it domain.FeedItem
		var kind string
		if err := rows.Scan(&it.ID, &kind, &it.ActorID, &it.ProjectID, &it.Message, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		it.Kind = domain.FeedKind(kind)
		items = append(items, it)
	}
	return items, rows.Err()
}
