// internal/storage/postgres/channels.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
)

// === ChannelStorage ===

func (s *Storage) CreateChannel(ctx context.Context, ch domain.Channel) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO channels (name, fee_rate)
		VALUES ($1, $2)
		RETURNING id
	`, sanitizeString(ch.Name), ch.FeeRate).Scan(&id)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("create channel %q", ch.Name))
	}
	return id, nil
}

func (s *Storage) UpdateChannel(ctx context.Context, ch domain.Channel) error {
	tag, err := s.db.Exec(ctx, `UPDATE channels SET name = $2, fee_rate = $3 WHERE id = $1`,
		ch.ID, sanitizeString(ch.Name), ch.FeeRate)
	if err != nil {
		return translate(err, fmt.Sprintf("update channel %d", ch.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %d: %w", ch.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) GetChannel(ctx context.Context, id int64) (*domain.Channel, error) {
	var ch domain.Channel
	err := s.db.QueryRow(ctx, `SELECT id, name, fee_rate, created_at FROM channels WHERE id = $1`, id).
		Scan(&ch.ID, &ch.Name, &ch.FeeRate, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *Storage) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, fee_rate, created_at FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := []domain.Channel{}
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.FeeRate, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (s *Storage) DeleteChannel(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("channel %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
