package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// PostgresAdminRepository implements domain.AdminRepository using PostgreSQL.
// Admins are created together with their organization, see CreateWithAdmin.
type PostgresAdminRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAdminRepository creates a new admin repository
func NewPostgresAdminRepository(db *sql.DB, logger *slog.Logger) *PostgresAdminRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAdminRepository{
		db:     db,
		logger: logger,
	}
}

const adminColumns = `id, username, email, password_hash, role, organization_id, created_at, updated_at`

// GetByID retrieves an admin by ID
func (r *PostgresAdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "get admin")
}

// GetByEmail retrieves an admin by case-insensitive email
func (r *PostgresAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "get admin by email")
}

func (r *PostgresAdminRepository) scanOne(row *sql.Row, op string) (*domain.Admin, error) {
	a := &domain.Admin{}
	var role string
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.OrganizationID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, op)
	}
	a.Role = domain.Role(role)
	return a, nil
}
