package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refreshTokenColumns = `id, user_id, token_hash, user_agent, ip_address, revoked, revoked_at, created_at, expires_at`

// RefreshTokenRepository persists hashed refresh tokens. Rows are only ever
// mutated to set revoked.
type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(db *database.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: db.Pool}
}

func scanRefreshTokenRow(row rowScanner) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.UserAgent, &t.IPAddress,
		&t.Revoked, &t.RevokedAt, &t.CreatedAt, &t.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + refreshTokenColumns

	created, err := scanRefreshTokenRow(r.pool.QueryRow(ctx, query,
		token.UserID, token.TokenHash, token.UserAgent, token.IPAddress, token.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return created, nil
}

// Redeem revokes a valid token and returns it, in one statement. A token that
// is unknown, expired or already revoked yields models.ErrNotFound, so two
// concurrent redeems of the same token cannot both succeed.
func (r *RefreshTokenRepository) Redeem(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
		RETURNING ` + refreshTokenColumns

	return scanRefreshTokenRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// RevokeByHash revokes one token. It reports whether a live token was revoked.
func (r *RefreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE token_hash = $1 AND revoked = FALSE`

	result, err := r.pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() > 0, nil
}

// RevokeByID revokes a session owned by userID; anything else is ErrNotFound.
func (r *RefreshTokenRepository) RevokeByID(ctx context.Context, userID, id int64) error {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW()
		WHERE id = $1 AND user_id = $2 AND revoked = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes every live token of the user except the one whose
// hash is exceptHash (pass "" to revoke all).
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, exceptHash string) (int64, error) {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE AND token_hash <> $2
	`

	result, err := r.pool.Exec(ctx, query, userID, exceptHash)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// ListActive returns the user's unrevoked, unexpired tokens, newest first.
func (r *RefreshTokenRepository) ListActive(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > NOW()
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.RefreshToken, 0)
	for rows.Next() {
		t, err := scanRefreshTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return tokens, nil
}

// DeleteStale removes tokens that expired, or were revoked, more than
// retention ago.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < NOW() - make_interval(secs => $1)
		   OR (revoked AND revoked_at < NOW() - make_interval(secs => $1))
	`

	result, err := r.pool.Exec(ctx, query, retention.Seconds())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
