package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, full_name, is_active, email_verified, is_superuser, roles,
	mfa_enabled, totp_secret_encrypted, totp_secret_nonce, totp_last_step, mfa_enrolled_at,
	failed_login_attempts, lockout_until, password_changed_at, created_at, updated_at`

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsActive, &user.EmailVerified, &user.IsSuperuser, &user.Roles,
		&user.MFAEnabled, &user.TOTPSecretEncrypted, &user.TOTPSecretNonce, &user.TOTPLastStep, &user.MFAEnrolledAt,
		&user.FailedLoginAttempts, &user.LockoutUntil, &user.PasswordChangedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail expects an already normalised email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// Create inserts a user. A duplicate email surfaces as models.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	query := `
		INSERT INTO users (email, password_hash, full_name, is_active, email_verified, is_superuser, roles, password_changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.FullName, user.IsActive,
		user.EmailVerified, user.IsSuperuser, roles, user.PasswordChangedAt,
	))
}

// Update applies the non-nil fields of upd.
func (r *UserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	query := `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			is_active = COALESCE($3, is_active),
			is_superuser = COALESCE($4, is_superuser),
			email_verified = COALESCE($5, email_verified),
			roles = COALESCE($6::text[], roles),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		id, upd.FullName, upd.IsActive, upd.IsSuperuser, upd.EmailVerified, upd.Roles,
	))
}

// UpdatePassword stores a new hash, stamps password_changed_at and clears any lockout.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2, password_changed_at = NOW(),
			failed_login_attempts = 0, lockout_until = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedLogin increments the failure counter in a single statement. When
// the counter reaches threshold the account is locked for lockout and the
// counter starts over. The updated row is returned.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id int64, threshold int, lockout time.Duration) (*models.User, error) {
	query := `
		UPDATE users SET
			failed_login_attempts = CASE WHEN failed_login_attempts + 1 >= $2 THEN 0 ELSE failed_login_attempts + 1 END,
			lockout_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN NOW() + make_interval(secs => $3) ELSE lockout_until END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, id, threshold, lockout.Seconds()))
}

// ResetFailedLogins clears the counter and any lockout. Used after a successful
// login and by the unlock operation.
func (r *UserRepository) ResetFailedLogins(ctx context.Context, id int64) error {
	query := `
		UPDATE users SET failed_login_attempts = 0, lockout_until = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetPendingMFASecret stores a freshly provisioned secret for a user that has
// not finished enrolment. Enabled users are rejected.
func (r *UserRepository) SetPendingMFASecret(ctx context.Context, id int64, encrypted, nonce []byte) error {
	query := `
		UPDATE users SET totp_secret_encrypted = $2, totp_secret_nonce = $3, totp_last_step = 0, updated_at = NOW()
		WHERE id = $1 AND mfa_enabled = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id, encrypted, nonce)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrMFAAlreadyEnabled
	}
	return nil
}

// EnableMFA finishes enrolment and installs a new set of recovery codes in
// one transaction. step is the time step of the confirming code.
func (r *UserRepository) EnableMFA(ctx context.Context, id int64, step int64, codeHashes []string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE users SET mfa_enabled = TRUE, mfa_enrolled_at = NOW(), totp_last_step = $2, updated_at = NOW()
			WHERE id = $1 AND mfa_enabled = FALSE AND totp_secret_encrypted IS NOT NULL
		`, id, step)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrMFAAlreadyEnabled
		}

		return replaceRecoveryCodes(ctx, tx, id, codeHashes)
	})
}

// DisableMFA wipes the secret, every recovery code and every trusted device.
func (r *UserRepository) DisableMFA(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE users SET mfa_enabled = FALSE, mfa_enrolled_at = NULL,
				totp_secret_encrypted = NULL, totp_secret_nonce = NULL, totp_last_step = 0, updated_at = NOW()
			WHERE id = $1
		`, id)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM mfa_recovery_codes WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trusted_devices WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete trusted devices: %w", err)
		}
		return nil
	})
}

// AdvanceTOTPStep records step as the last accepted TOTP step. It reports
// false when step is not newer than the stored one, i.e. a replayed code.
func (r *UserRepository) AdvanceTOTPStep(ctx context.Context, id int64, step int64) (bool, error) {
	query := `UPDATE users SET totp_last_step = $2 WHERE id = $1 AND totp_last_step < $2`

	result, err := r.pool.Exec(ctx, query, id, step)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() == 1, nil
}

// Deactivate soft-deletes the user: the flag is cleared, every refresh token
// revoked, and trusted devices and recovery codes removed. MFA enrolment goes
// with the recovery codes, so a reactivated account enrols again.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE users SET is_active = FALSE, mfa_enabled = FALSE, mfa_enrolled_at = NULL,
				totp_secret_encrypted = NULL, totp_secret_nonce = NULL, totp_last_step = 0, updated_at = NOW()
			WHERE id = $1
		`, id)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW()
			WHERE user_id = $1 AND revoked = FALSE
		`, id); err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trusted_devices WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete trusted devices: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM mfa_recovery_codes WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}
		return nil
	})
}
