package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecoveryCodeRepository stores hashed MFA recovery codes.
type RecoveryCodeRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewRecoveryCodeRepository(db *database.DB) *RecoveryCodeRepository {
	return &RecoveryCodeRepository{db: db, pool: db.Pool}
}

// Replace deletes every code of the user and inserts codeHashes in one transaction.
func (r *RecoveryCodeRepository) Replace(ctx context.Context, userID int64, codeHashes []string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return replaceRecoveryCodes(ctx, tx, userID, codeHashes)
	})
}

func replaceRecoveryCodes(ctx context.Context, tx pgx.Tx, userID int64, codeHashes []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM mfa_recovery_codes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete recovery codes: %w", err)
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO mfa_recovery_codes (user_id, code_hash)
		SELECT $1, unnest($2::text[])
	`, userID, codeHashes)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// ListUnused returns every unused code of the user.
func (r *RecoveryCodeRepository) ListUnused(ctx context.Context, userID int64) ([]*models.RecoveryCode, error) {
	query := `
		SELECT id, user_id, code_hash, used, used_at, created_at
		FROM mfa_recovery_codes
		WHERE user_id = $1 AND used = FALSE
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recovery codes: %w", err)
	}
	defer rows.Close()

	codes := make([]*models.RecoveryCode, 0)
	for rows.Next() {
		var c models.RecoveryCode
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Used, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovery code: %w", err)
		}
		codes = append(codes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recovery codes: %w", err)
	}

	return codes, nil
}

// MarkUsed flips a single unused code to used. It reports false if another
// request got there first.
func (r *RecoveryCodeRepository) MarkUsed(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE mfa_recovery_codes SET used = TRUE, used_at = NOW() WHERE id = $1 AND used = FALSE`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *RecoveryCodeRepository) CountUnused(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mfa_recovery_codes WHERE user_id = $1 AND used = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}
