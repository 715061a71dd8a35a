package trainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chess-guess-trainer/internal/domain"
)

var ErrDuplicateResult = errors.New("training result already exists")

const maxHistoryLimit = 50

type Repository interface {
	InsertResult(ctx context.Context, result *domain.TrainingResult) (int64, error)
	RecentResults(ctx context.Context, playerHash string, limit int) ([]*domain.TrainingResult, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const schema = `
	CREATE TABLE IF NOT EXISTS training_results (
		id           BIGSERIAL PRIMARY KEY,
		session_uuid TEXT NOT NULL UNIQUE,
		player_hash  TEXT NOT NULL,
		game_id      TEXT NOT NULL,
		side         TEXT NOT NULL,
		variant      TEXT NOT NULL,
		score        INTEGER NOT NULL,
		max_score    INTEGER NOT NULL,
		percentage   DOUBLE PRECISION NOT NULL,
		user_plies   INTEGER NOT NULL,
		correct      INTEGER NOT NULL,
		unscored     INTEGER NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		ended_at     TIMESTAMPTZ NOT NULL,
		duration_ms  BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS training_results_player_idx
		ON training_results (player_hash, ended_at DESC)`

// EnsureSchema creates the results table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure training_results schema: %w", err)
	}
	return nil
}

func (r *repository) InsertResult(ctx context.Context, result *domain.TrainingResult) (int64, error) {
	if result == nil {
		return 0, fmt.Errorf("nil training result payload")
	}

	const query = `
		INSERT INTO training_results (
			session_uuid,
			player_hash,
			game_id,
			side,
			variant,
			score,
			max_score,
			percentage,
			user_plies,
			correct,
			unscored,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		query,
		result.SessionUUID,
		result.PlayerHash,
		result.GameID,
		string(result.Side),
		result.Variant,
		result.Score,
		result.MaxScore,
		result.Percentage,
		result.UserPlies,
		result.Correct,
		result.Unscored,
		result.StartedAt,
		result.EndedAt,
		result.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateResult
	}
	if err != nil {
		return 0, fmt.Errorf("insert training result: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentResults(ctx context.Context, playerHash string, limit int) ([]*domain.TrainingResult, error) {
	limit = clampLimit(limit)
	const query = `
		SELECT
			id,
			session_uuid,
			player_hash,
			game_id,
			side,
			variant,
			score,
			max_score,
			percentage,
			user_plies,
			correct,
			unscored,
			started_at,
			ended_at,
			duration_ms
		FROM training_results
		WHERE player_hash = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("select training results: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.TrainingResult, 0, limit)
	for rows.Next() {
		var (
			res        domain.TrainingResult
			side       string
			durationMS int64
		)
		if err := rows.Scan(
			&res.ID,
			&res.SessionUUID,
			&res.PlayerHash,
			&res.GameID,
			&side,
			&res.Variant,
			&res.Score,
			&res.MaxScore,
			&res.Percentage,
			&res.UserPlies,
			&res.Correct,
			&res.Unscored,
			&res.StartedAt,
			&res.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan training result: %w", err)
		}
		res.Side = domain.Side(side)
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training results: %w", err)
	}
	return results, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
