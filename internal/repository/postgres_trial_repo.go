package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/trialman/internal/model"
)

// dateLayout はDATE列に渡す日付の書式。
// タイムゾーン変換で日付がずれないよう、time.Timeではなく文字列で渡す。
const dateLayout = "2006-01-02"

// trialWithCreatorColumns はtrials(t)とusers(u)をJOINした際の選択列。
const trialWithCreatorColumns = `t.id, t.trial_name, t.description, t.start_date, t.end_date,
	t.status, t.created_by, t.created_at, t.updated_at,
	u.username AS creator_username, u.full_name AS creator_full_name`

// PostgresTrialRepo はPostgreSQLを使用した治験リポジトリ。
type PostgresTrialRepo struct {
	db *sqlx.DB
}

// NewPostgresTrialRepo はPostgresTrialRepoを生成する。
func NewPostgresTrialRepo(db *sqlx.DB) *PostgresTrialRepo {
	return &PostgresTrialRepo{db: db}
}

// ListByOwner は所有者の治験を作成順で返す。
func (r *PostgresTrialRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.TrialWithCreator, error) {
	trials := []model.TrialWithCreator{}
	err := r.db.SelectContext(ctx, &trials,
		`SELECT `+trialWithCreatorColumns+`
		 FROM trials t
		 JOIN users u ON u.id = t.created_by
		 WHERE t.created_by = $1
		 ORDER BY t.created_at ASC, t.id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	return trials, nil
}

// FindByIDAndOwner は所有者の治験を取得する。見つからない場合はnilを返す。
func (r *PostgresTrialRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.TrialWithCreator, error) {
	trial := &model.TrialWithCreator{}
	err := r.db.GetContext(ctx, trial,
		`SELECT `+trialWithCreatorColumns+`
		 FROM trials t
		 JOIN users u ON u.id = t.created_by
		 WHERE t.id = $1 AND t.created_by = $2`,
		id, ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find trial: %w", err)
	}
	return trial, nil
}

// Create は治験を作成し、作成者情報をJOINした結果を返す。
func (r *PostgresTrialRepo) Create(ctx context.Context, trial *model.Trial) (*model.TrialWithCreator, error) {
	created := &model.TrialWithCreator{}
	err := r.db.GetContext(ctx, created,
		`WITH inserted AS (
			INSERT INTO trials (id, trial_name, description, start_date, end_date, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT `+trialWithCreatorColumns+`
		FROM inserted t
		JOIN users u ON u.id = t.created_by`,
		trial.ID, trial.TrialName, trial.Description,
		trial.StartDate.Format(dateLayout), trial.EndDate.Format(dateLayout),
		string(trial.Status), trial.CreatedBy, trial.CreatedAt, trial.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trial: %w", err)
	}
	return created, nil
}

// UpdateByIDAndOwner は部分更新を1文の条件付きUPDATEで適用する。
// 所有者チェック、部分マージ、日付範囲の検証を同一文で行うため、
// 確認と更新の間に競合の窓がない。条件に一致しない場合はnilを返す。
func (r *PostgresTrialRepo) UpdateByIDAndOwner(ctx context.Context, id, ownerID string, changes model.TrialChanges, now time.Time) (*model.TrialWithCreator, error) {
	updated := &model.TrialWithCreator{}
	err := r.db.GetContext(ctx, updated,
		`WITH updated AS (
			UPDATE trials SET
				trial_name  = COALESCE($3, trial_name),
				description = COALESCE($4, description),
				start_date  = COALESCE($5::date, start_date),
				end_date    = COALESCE($6::date, end_date),
				status      = COALESCE($7, status),
				updated_at  = $8
			WHERE id = $1 AND created_by = $2
			  AND COALESCE($6::date, end_date) >= COALESCE($5::date, start_date)
			RETURNING *
		)
		SELECT `+trialWithCreatorColumns+`
		FROM updated t
		JOIN users u ON u.id = t.created_by`,
		id, ownerID,
		changes.TrialName, changes.Description,
		formatDatePtr(changes.StartDate), formatDatePtr(changes.EndDate),
		statusPtr(changes.Status), now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update trial: %w", err)
	}
	return updated, nil
}

// DeleteByIDAndOwner は所有者の治験を削除する。削除対象がなければfalseを返す。
func (r *PostgresTrialRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM trials WHERE id = $1 AND created_by = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete trial: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountByOwner は所有者の治験数を返す。
func (r *PostgresTrialRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM trials WHERE created_by = $1`,
		ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count trials: %w", err)
	}
	return count, nil
}

// CountByStatus は所有者の治験数をステータス別に返す。
func (r *PostgresTrialRepo) CountByStatus(ctx context.Context, ownerID string) ([]model.StatusCount, error) {
	counts := []model.StatusCount{}
	err := r.db.SelectContext(ctx, &counts,
		`SELECT status, COUNT(*) AS count
		 FROM trials
		 WHERE created_by = $1
		 GROUP BY status`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count trials by status: %w", err)
	}
	return counts, nil
}

// ListRecentByOwner は所有者の治験を作成日時の降順でlimit件返す。
func (r *PostgresTrialRepo) ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]model.RecentTrial, error) {
	recent := []model.RecentTrial{}
	err := r.db.SelectContext(ctx, &recent,
		`SELECT t.id, t.trial_name, t.status, t.created_at, u.username AS creator_username
		 FROM trials t
		 JOIN users u ON u.id = t.created_by
		 WHERE t.created_by = $1
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent trials: %w", err)
	}
	return recent, nil
}

// ListDurationDaysByOwner は所有者の各治験の期間（日数）を返す。
func (r *PostgresTrialRepo) ListDurationDaysByOwner(ctx context.Context, ownerID string) ([]float64, error) {
	days := []float64{}
	err := r.db.SelectContext(ctx, &days,
		`SELECT (end_date - start_date)::float8 AS days
		 FROM trials
		 WHERE created_by = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trial durations: %w", err)
	}
	return days, nil
}

// formatDatePtr は日付ポインタをDATE列用の文字列ポインタに変換する。nilはNULLになる。
func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func statusPtr(s *model.TrialStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// compile-time interface check
var _ TrialRepository = (*PostgresTrialRepo)(nil)
