package decisions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/dbx"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Record(ctx context.Context, d models.Decision) error {
	query := `INSERT INTO decisions (id, candidate_id, verdict, issued_at, status)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.CandidateID, string(d.Verdict), d.IssuedAt.UnixMilli(), string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to record decision %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Resolve(ctx context.Context, res models.ReconciliationResult) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM decisions WHERE id = ?`, res.DecisionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("resolve %s: %w", res.DecisionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load decision %s: %w", res.DecisionID, err)
		}
		if models.ReconcileStatus(status) != models.StatusPending {
			return nil
		}

		conversationID := ""
		if res.Match != nil {
			conversationID = res.Match.ConversationID
		}
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}

		_, err = tx.ExecContext(ctx, `UPDATE decisions
			SET status = ?, conversation_id = ?, error = ?, resolved_at = ?
			WHERE id = ?`,
			string(res.Status), conversationID, errText, r.now().UnixMilli(), res.DecisionID)
		if err != nil {
			return fmt.Errorf("failed to resolve decision %s: %w", res.DecisionID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) DecidedCandidates(ctx context.Context, includeFailed bool) ([]string, error) {
	query := `SELECT candidate_id FROM decisions
		WHERE status <> 'failed'
		GROUP BY candidate_id ORDER BY MIN(issued_at), candidate_id`
	if includeFailed {
		query = `SELECT candidate_id FROM decisions
			GROUP BY candidate_id ORDER BY MIN(issued_at), candidate_id`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list decided candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, candidate_id, verdict, issued_at, status,
			conversation_id, error, resolved_at
		FROM decisions ORDER BY issued_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select decisions: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var (
			e          Entry
			verdict    string
			status     string
			issuedAt   int64
			resolvedAt sql.NullInt64
		)
		err := rows.Scan(&e.Decision.ID, &e.Decision.CandidateID, &verdict, &issuedAt, &status,
			&e.ConversationID, &e.Error, &resolvedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		e.Decision.Verdict = models.Verdict(verdict)
		e.Decision.IssuedAt = time.UnixMilli(issuedAt)
		e.Status = models.ReconcileStatus(status)
		if resolvedAt.Valid {
			t := time.UnixMilli(resolvedAt.Int64)
			e.ResolvedAt = &t
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return result, nil
}
