// internal/storage/postgres/contacts.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
)

// === ContactStorage ===

func (s *Storage) CreateContact(ctx context.Context, c domain.Contact) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO contacts (name, company, email, phone, memo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sanitizeString(c.Name), sanitizeString(c.Company), c.Email, c.Phone, c.Memo).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	return id, nil
}

func (s *Storage) UpdateContact(ctx context.Context, c domain.Contact) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE contacts SET name = $2, company = $3, email = $4, phone = $5, memo = $6
		WHERE id = $1
	`, c.ID, sanitizeString(c.Name), sanitizeString(c.Company), c.Email, c.Phone, c.Memo)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %d: %w", c.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	var c domain.Contact
	err := s.db.QueryRow(ctx, `
		SELECT id, name, company, email, phone, memo, created_at FROM contacts WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Company, &c.Email, &c.Phone, &c.Memo, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &c, nil
}

func (s *Storage) ListContacts(ctx context.Context, query string) ([]domain.Contact, error) {
	pattern := "%" + sanitizeString(query) + "%"
	rows, err := s.db.Query(ctx, `
		SELECT id, name, company, email, phone, memo, created_at
		FROM contacts
		WHERE name ILIKE $1 OR company ILIKE $1 OR email ILIKE $1
		ORDER BY name, id
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Company, &c.Email, &c.Phone, &c.Memo, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *Storage) DeleteContact(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
