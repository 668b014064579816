package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trustedDeviceColumns = `id, user_id, token_hash, user_agent, ip_address, created_at, expires_at`

type TrustedDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewTrustedDeviceRepository(db *database.DB) *TrustedDeviceRepository {
	return &TrustedDeviceRepository{pool: db.Pool}
}

func scanTrustedDeviceRow(row rowScanner) (*models.TrustedDevice, error) {
	var d models.TrustedDevice
	err := row.Scan(&d.ID, &d.UserID, &d.TokenHash, &d.UserAgent, &d.IPAddress, &d.CreatedAt, &d.ExpiresAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &d, nil
}

func (r *TrustedDeviceRepository) Create(ctx context.Context, device *models.TrustedDevice) (*models.TrustedDevice, error) {
	query := `
		INSERT INTO trusted_devices (user_id, token_hash, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + trustedDeviceColumns

	created, err := scanTrustedDeviceRow(r.pool.QueryRow(ctx, query,
		device.UserID, device.TokenHash, device.UserAgent, device.IPAddress, device.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trusted device: %w", err)
	}
	return created, nil
}

// FindActive looks a device up by hash, scoped to the user and to unexpired rows.
func (r *TrustedDeviceRepository) FindActive(ctx context.Context, userID int64, tokenHash string) (*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1 AND token_hash = $2 AND expires_at > NOW()
	`
	return scanTrustedDeviceRow(r.pool.QueryRow(ctx, query, userID, tokenHash))
}

func (r *TrustedDeviceRepository) List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trusted devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.TrustedDevice, 0)
	for rows.Next() {
		d, err := scanTrustedDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted devices: %w", err)
	}
	return devices, nil
}

// Delete removes one device owned by userID; anything else is ErrNotFound.
func (r *TrustedDeviceRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM trusted_devices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *TrustedDeviceRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM trusted_devices WHERE user_id = $1`, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *TrustedDeviceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM trusted_devices WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
