// internal/storage/postgres/members.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
)

const memberColumns = `id, name, email, role, bank_name, bank_account, telegram_id, active, password_hash, created_at`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	var role string
	err := row.Scan(&m.ID, &m.Name, &m.Email, &role, &m.BankName, &m.BankAccount,
		&m.TelegramID, &m.Active, &m.PasswordHash, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

func (s *Storage) CreateMember(ctx context.Context, m domain.Member) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO members (name, email, role, bank_name, bank_account, telegram_id, active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, sanitizeString(m.Name), m.Email, string(m.Role), m.BankName, m.BankAccount,
		m.TelegramID, m.Active, m.PasswordHash).Scan(&id)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("create member %q", m.Email))
	}
	return id, nil
}

func (s *Storage) UpdateMember(ctx context.Context, m domain.Member) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE members
		SET name = $2, email = $3, role = $4, bank_name = $5, bank_account = $6, telegram_id = $7, active = $8
		WHERE id = $1
	`, m.ID, sanitizeString(m.Name), m.Email, string(m.Role), m.BankName, m.BankAccount, m.TelegramID, m.Active)
	if err != nil {
		return translate(err, fmt.Sprintf("update member %d", m.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %d: %w", m.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) SetMemberPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE members SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("set member password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	m, err := scanMember(s.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *Storage) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	m, err := scanMember(s.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE lower(email) = lower($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find member by email: %w", err)
	}
	return m, nil
}

func (s *Storage) FindMemberByTelegramID(ctx context.Context, telegramID int64) (*domain.Member, error) {
	m, err := scanMember(s.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE telegram_id = $1`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find member by telegram id: %w", err)
	}
	return m, nil
}

func (s *Storage) ListMembers(ctx context.Context, activeOnly bool) ([]domain.Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE NOT $1 OR active
		ORDER BY name, id
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *Storage) DeleteMember(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("member %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
