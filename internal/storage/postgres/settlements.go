// internal/storage/postgres/settlements.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio-settlement/internal/domain"
	"studio-settlement/internal/storage"

	"github.com/jackc/pgx/v5"
)

var itemColumns = []string{
	"settlement_id", "project_id", "project_name", "member_id", "member_name",
	"percent", "bonus_pct", "gross_amount", "distributable_net",
	"amount_before_withholding", "withholding_3_3", "amount_after_withholding",
}

func (s *Storage) SaveSettlementDraft(ctx context.Context, month, rateVersion string, items []domain.SettlementItem) (*domain.Settlement, error) {
	monthTime, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	if monthTime == nil {
		return nil, fmt.Errorf("settlement month is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Upsert the header, then lock it so a concurrent confirm waits for us.
	var id int64
	var status string
	err = tx.QueryRow(ctx, `
		INSERT INTO settlements (month, status, rate_version)
		VALUES ($1, 'draft', $2)
		ON CONFLICT (month) DO UPDATE SET updated_at = settlements.updated_at
		RETURNING id
	`, monthTime, rateVersion).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upsert settlement: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT status FROM settlements WHERE id = $1 FOR UPDATE`, id).Scan(&status); err != nil {
		return nil, fmt.Errorf("lock settlement: %w", err)
	}
	if domain.SettlementStatus(status) != domain.SettlementDraft {
		return nil, fmt.Errorf("settlement %s is %s: %w", month, status, storage.ErrSettlementLocked)
	}

	if _, err := tx.Exec(ctx, `UPDATE settlements SET rate_version = $2, updated_at = now() WHERE id = $1`, id, rateVersion); err != nil {
		return nil, fmt.Errorf("update settlement: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM settlement_items WHERE settlement_id = $1`, id); err != nil {
		return nil, fmt.Errorf("clear settlement items: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"settlement_items"}, itemColumns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{
				id, it.ProjectID, it.ProjectName, it.MemberID, it.MemberName,
				it.Percent, it.BonusPct, it.GrossAmount, it.DistributableNet,
				it.AmountBeforeWithholding, it.Withholding, it.AmountAfterWithholding,
			}, nil
		}))
	if err != nil {
		return nil, fmt.Errorf("copy settlement items: %w", err)
	}

	st, err := getSettlement(ctx, tx, monthTime)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

func (s *Storage) GetSettlement(ctx context.Context, month string) (*domain.Settlement, error) {
	monthTime, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	if monthTime == nil {
		return nil, nil
	}
	return getSettlement(ctx, s.db, monthTime)
}

const settlementSelect = `
	SELECT s.id, s.month, s.status, s.rate_version,
	       COALESCE(SUM(i.amount_before_withholding), 0)::bigint,
	       COALESCE(SUM(i.withholding_3_3), 0)::bigint,
	       COALESCE(SUM(i.amount_after_withholding), 0)::bigint,
	       s.created_at, s.updated_at, s.confirmed_at, s.paid_at
	FROM settlements s
	LEFT JOIN settlement_items i ON i.settlement_id = s.id`

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var st domain.Settlement
	var month time.Time
	var status string
	err := row.Scan(&st.ID, &month, &status, &st.RateVersion,
		&st.TotalBeforeWithholding, &st.TotalWithholding, &st.TotalAfterWithholding,
		&st.CreatedAt, &st.UpdatedAt, &st.ConfirmedAt, &st.PaidAt)
	if err != nil {
		return nil, err
	}
	st.Month = month.Format("2006-01")
	st.Status = domain.SettlementStatus(status)
	return &st, nil
}

func getSettlement(ctx context.Context, q querier, month *time.Time) (*domain.Settlement, error) {
	st, err := scanSettlement(q.QueryRow(ctx, settlementSelect+` WHERE s.month = $1 GROUP BY s.id`, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	st.Items, err = queryItems(ctx, q, `
		SELECT id, `+joinColumns(itemColumns)+`
		FROM settlement_items
		WHERE settlement_id = $1
		ORDER BY project_id, id
	`, st.ID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Storage) ListSettlements(ctx context.Context) ([]domain.Settlement, error) {
	rows, err := s.db.Query(ctx, settlementSelect+` GROUP BY s.id ORDER BY s.month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	settlements := []domain.Settlement{}
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, *st)
	}
	return settlements, rows.Err()
}

func (s *Storage) SetSettlementStatus(ctx context.Context, month string, from, to domain.SettlementStatus) error {
	monthTime, err := parseMonth(month)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE settlements
		SET status = $3::text,
		    updated_at = now(),
		    confirmed_at = CASE WHEN $3::text = 'confirmed' THEN now()
		                        WHEN $3::text = 'draft' THEN NULL
		                        ELSE confirmed_at END,
		    paid_at = CASE WHEN $3::text = 'paid' THEN now() ELSE paid_at END
		WHERE month = $1 AND status = $2::text
	`, monthTime, string(from), string(to))
	if err != nil {
		return fmt.Errorf("set settlement status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRow(ctx, `SELECT status FROM settlements WHERE month = $1`, monthTime).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("settlement %s: %w", month, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get settlement status: %w", err)
	}
	return fmt.Errorf("settlement %s is %s, not %s: %w", month, current, from, storage.ErrConflict)
}

func (s *Storage) MemberSummaries(ctx context.Context, month string) ([]domain.MemberSummary, error) {
	monthTime, err := parseMonth(month)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT i.member_id, i.member_name, COUNT(DISTINCT i.project_id),
		       SUM(i.amount_before_withholding)::bigint,
		       SUM(i.withholding_3_3)::bigint,
		       SUM(i.amount_after_withholding)::bigint
		FROM settlement_items i
		JOIN settlements s ON s.id = i.settlement_id
		WHERE s.month = $1
		GROUP BY i.member_id, i.member_name
		ORDER BY i.member_name, i.member_id
	`, monthTime)
	if err != nil {
		return nil, fmt.Errorf("member summaries: %w", err)
	}
	defer rows.Close()

	summaries := []domain.MemberSummary{}
	for rows.Next() {
		var ms domain.MemberSummary
		if err := rows.Scan(&ms.MemberID, &ms.MemberName, &ms.Projects,
			&ms.AmountBeforeWithholding, &ms.Withholding, &ms.AmountAfterWithholding); err != nil {
			return nil, fmt.Errorf("scan member summary: %w", err)
		}
		summaries = append(summaries, ms)
	}
	return summaries, rows.Err()
}

func (s *Storage) MemberItems(ctx context.Context, month string, memberID int64) ([]domain.SettlementItem, error) {
	monthTime, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	return queryItems(ctx, s.db, `
		SELECT i.id, i.`+joinColumns(itemColumns, "i.")+`
		FROM settlement_items i
		JOIN settlements s ON s.id = i.settlement_id
		WHERE s.month = $1 AND i.member_id = $2
		ORDER BY i.project_id, i.id
	`, monthTime, memberID)
}

func queryItems(ctx context.Context, q querier, sql string, args ...any) ([]domain.SettlementItem, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlement items: %w", err)
	}
	defer rows.Close()

	items := []domain.SettlementItem{}
	for rows.Next() {
		var it domain.SettlementItem
		err := rows.Scan(&it.ID, &it.SettlementID, &it.ProjectID, &it.ProjectName, &it.MemberID, &it.MemberName,
			&it.Percent, &it.BonusPct, &it.GrossAmount, &it.DistributableNet,
			&it.AmountBeforeWithholding, &it.Withholding, &it.AmountAfterWithholding)
		if err != nil {
			return nil, fmt.Errorf("scan settlement item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// joinColumns renders cols as a select list; an optional prefix is applied
// to every column after the first (the caller writes the first prefix).
func joinColumns(cols []string, prefix ...string) string {
	p := ""
	if len(prefix) > 0 {
		p = prefix[0]
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", " + p
		}
		out += c
	}
	return out
}
