package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/pkg/database"
)

// PostgresOrganizationRepository implements domain.OrganizationRepository using PostgreSQL
type PostgresOrganizationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrganizationRepository creates a new organization repository
func NewPostgresOrganizationRepository(db *sql.DB, logger *slog.Logger) *PostgresOrganizationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrganizationRepository{db: db, logger: logger}
}

// CreateWithAdmin inserts the organization and its super-admin in one transaction
func (r *PostgresOrganizationRepository) CreateWithAdmin(ctx context.Context, org *domain.Organization, admin *domain.Admin) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		orgQuery := `
			INSERT INTO organizations (id, name, email, phone, address, city, country, industry, practice_areas, super_admin_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := tx.ExecContext(ctx, orgQuery,
			org.ID, org.Name, org.Email, org.Phone, org.Address, org.City, org.Country, org.Industry,
			pq.Array(org.PracticeAreas), org.SuperAdminID, org.CreatedAt, org.UpdatedAt,
		); err != nil {
			return translateError(err, "create organization")
		}

		adminQuery := `
			INSERT INTO admins (id, username, email, password_hash, role, organization_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, adminQuery,
			admin.ID, admin.Username, admin.Email, admin.PasswordHash, string(admin.Role),
			admin.OrganizationID, admin.CreatedAt, admin.UpdatedAt,
		); err != nil {
			return translateError(err, "create admin")
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("organization setup rolled back",
			slog.String("organization", org.Name),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	o := &domain.Organization{}
	var superAdmin sql.NullString
	query := `
		SELECT id, name, email, phone, address, city, country, industry, practice_areas, super_admin_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.City, &o.Country, &o.Industry,
		pq.Array(&o.PracticeAreas), &superAdmin, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err, "get organization")
	}
	o.SuperAdminID = superAdmin.String
	return o, nil
}
