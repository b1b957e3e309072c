// internal/storage/postgres/projects.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
)

const projectSelect = `
	SELECT p.id, p.name, p.contact_id, p.channel_id, c.name, c.fee_rate,
	       p.gross_amount, p.discount_net, p.status, p.settle_month, p.memo,
	       p.created_at, p.updated_at
	FROM projects p
	JOIN channels c ON c.id = p.channel_id`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	var status string
	var settleMonth *time.Time
	err := row.Scan(&p.ID, &p.Name, &p.ContactID, &p.ChannelID, &p.ChannelName, &p.ChannelFeeRate,
		&p.GrossAmount, &p.DiscountNet, &status, &settleMonth, &p.Memo,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	p.SettleMonth = formatMonth(settleMonth)
	p.Designers = []domain.DesignerShare{}
	return &p, nil
}

func (s *Storage) CreateProject(ctx context.Context, p domain.Project) (int64, error) {
	settleMonth, err := parseMonth(p.SettleMonth)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, contact_id, channel_id, gross_amount, discount_net, status, settle_month, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, sanitizeString(p.Name), p.ContactID, p.ChannelID, p.GrossAmount, p.DiscountNet,
		string(p.Status), settleMonth, p.Memo).Scan(&id)
	if err != nil {
		return 0, translate(err, "create project")
	}

	if err := insertDesigners(ctx, tx, id, p.Designers); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (s *Storage) UpdateProject(ctx context.Context, p domain.Project) error {
	settleMonth, err := parseMonth(p.SettleMonth)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE projects
		SET name = $2, contact_id = $3, channel_id = $4, gross_amount = $5, discount_net = $6,
		    status = $7, settle_month = $8, memo = $9, updated_at = now()
		WHERE id = $1
	`, p.ID, sanitizeString(p.Name), p.ContactID, p.ChannelID, p.GrossAmount, p.DiscountNet,
		string(p.Status), settleMonth, p.Memo)
	if err != nil {
		return translate(err, fmt.Sprintf("update project %d", p.ID))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %d: %w", p.ID, storage.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM project_designers WHERE project_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear designers: %w", err)
	}
	if err := insertDesigners(ctx, tx, p.ID, p.Designers); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertDesigners(ctx context.Context, tx pgx.Tx, projectID int64, shares []domain.DesignerShare) error {
	for i, d := range shares {
		_, err := tx.Exec(ctx, `
			INSERT INTO project_designers (project_id, member_id, percent, bonus_pct, position)
			VALUES ($1, $2, $3, $4, $5)
		`, projectID, d.MemberID, d.Percent, d.BonusPct, i)
		if err != nil {
			return translate(err, fmt.Sprintf("assign member %d", d.MemberID))
		}
	}
	return nil
}

func (s *Storage) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(s.db.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	projects := []domain.Project{*p}
	if err := s.loadDesigners(ctx, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

func (s *Storage) ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	var where []string
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.SettleMonth != "" {
		month, err := parseMonth(filter.SettleMonth)
		if err != nil {
			return nil, err
		}
		args = append(args, month)
		where = append(where, fmt.Sprintf("p.settle_month = $%d", len(args)))
	}
	if filter.MemberID != 0 {
		args = append(args, filter.MemberID)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM project_designers pd WHERE pd.project_id = p.id AND pd.member_id = $%d)", len(args)))
	}

	query := projectSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.id DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadDesigners(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// loadDesigners fills Designers for every project in one round trip.
func (s *Storage) loadDesigners(ctx context.Context, projects []domain.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]int64, len(projects))
	index := make(map[int64]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := s.db.Query(ctx, `
		SELECT pd.project_id, pd.member_id, m.name, pd.percent, pd.bonus_pct
		FROM project_designers pd
		JOIN members m ON m.id = pd.member_id
		WHERE pd.project_id = ANY($1)
		ORDER BY pd.project_id, pd.position
	`, ids)
	if err != nil {
		return fmt.Errorf("load designers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID int64
		var d domain.DesignerShare
		if err := rows.Scan(&projectID, &d.MemberID, &d.MemberName, &d.Percent, &d.BonusPct); err != nil {
			return fmt.Errorf("scan designer: %w", err)
		}
		i := index[projectID]
		projects[i].Designers = append(projects[i].Designers, d)
	}
	return rows.Err()
}

func (s *Storage) DeleteProject(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("project %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
