package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/pkg/database"
)

// PostgresEmployeeRepository implements domain.EmployeeRepository using PostgreSQL.
// Status history lives in its own append-only table.
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEmployeeRepository{db: db, logger: logger}
}

const employeeColumns = `
	id, organization_id, invited_by, first_name, last_name, email, phone, address, gender,
	date_of_birth, age, national_id, employee_type, license_number, intern_year, department, position,
	start_date, emergency_name, emergency_phone, emergency_relationship, salary, password_hash,
	invitation_status, invitation_token, invitation_expires, status, employment_status,
	archived_at, archived_by, archive_reason, is_deleted, deleted_at, version, created_at, updated_at`

var sortColumns = map[domain.SortField]string{
	domain.SortCreatedAt: "created_at",
	domain.SortUpdatedAt: "updated_at",
	domain.SortFirstName: "first_name",
	domain.SortLastName:  "last_name",
	domain.SortEmail:     "email",
	domain.SortSalary:    "salary",
	domain.SortStatus:    "status",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new employee at version 1
func (r *PostgresEmployeeRepository) Create(ctx context.Context, e *domain.Employee) error {
	e.Version = 1
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO employees (` + employeeColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)
		`
		args := append([]any{e.ID, e.OrganizationID}, employeeValues(e)...)
		args = append(args, e.Version, e.CreatedAt, e.UpdatedAt)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translateError(err, "create employee")
		}
		return insertHistory(ctx, tx, e)
	})
	if err != nil {
		e.Version = 0
		r.logger.Debug("create employee failed",
			slog.String("email", e.Email),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Update saves every mutable column when the stored version still matches e.Version
func (r *PostgresEmployeeRepository) Update(ctx context.Context, e *domain.Employee) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE employees SET
				invited_by = $3, first_name = $4, last_name = $5, email = $6, phone = $7, address = $8, gender = $9,
				date_of_birth = $10, age = $11, national_id = $12, employee_type = $13, license_number = $14,
				intern_year = $15, department = $16, position = $17, start_date = $18, emergency_name = $19,
				emergency_phone = $20, emergency_relationship = $21, salary = $22, password_hash = $23,
				invitation_status = $24, invitation_token = $25, invitation_expires = $26, status = $27,
				employment_status = $28, archived_at = $29, archived_by = $30, archive_reason = $31,
				is_deleted = $32, deleted_at = $33, updated_at = $34, version = version + 1
			WHERE id = $1 AND organization_id = $2 AND version = $35
		`
		args := append([]any{e.ID, e.OrganizationID}, employeeValues(e)...)
		args = append(args, e.UpdatedAt, e.Version)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return translateError(err, "update employee")
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1 AND organization_id = $2)`,
				e.ID, e.OrganizationID,
			).Scan(&exists); err != nil {
				return translateError(err, "check employee")
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrConcurrentUpdate
		}
		return insertHistory(ctx, tx, e)
	})
	if err != nil {
		return err
	}
	e.Version++
	return nil
}

// employeeValues returns the mutable columns in insert order, invited_by through deleted_at
func employeeValues(e *domain.Employee) []any {
	return []any{
		nullString(e.InvitedBy), e.FirstName, e.LastName, e.Email, e.Phone, e.Address, e.Gender,
		nullTime(e.DateOfBirth), e.Age, nullString(e.NationalID), string(e.EmployeeType), e.LicenseNumber,
		e.InternYear, e.Department, e.Position, nullTime(e.StartDate), e.EmergencyContact.Name,
		e.EmergencyContact.Phone, e.EmergencyContact.Relationship, e.Salary, e.PasswordHash,
		string(e.InvitationStatus), nullString(e.InvitationToken), e.InvitationExpires, string(e.Status),
		string(e.EmploymentStatus), nullTime(e.ArchivedAt), nullString(e.ArchivedBy), nullString(e.ArchiveReason),
		e.IsDeleted, nullTime(e.DeletedAt),
	}
}

// insertHistory appends entries not yet stored; existing rows are never touched
func insertHistory(ctx context.Context, tx *sql.Tx, e *domain.Employee) error {
	for i, h := range e.StatusHistory {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO employee_status_history (id, employee_id, position, from_status, to_status, changed_by, changed_at, reason, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, h.ID, e.ID, i, string(h.From), string(h.To), h.ChangedBy, h.ChangedAt, h.Reason, h.Notes)
		if err != nil {
			return translateError(err, "append status history")
		}
	}
	return nil
}

// GetByID loads an employee of orgID together with its status history
func (r *PostgresEmployeeRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND organization_id = $2`
	return r.getOne(ctx, "get employee", query, id, orgID)
}

// GetByEmail finds an employee of orgID by case-insensitive email
func (r *PostgresEmployeeRepository) GetByEmail(ctx context.Context, orgID, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE LOWER(email) = LOWER($1) AND organization_id = $2`
	return r.getOne(ctx, "get employee by email", query, email, orgID)
}

// FindByEmail searches all organizations; emails are globally unique
func (r *PostgresEmployeeRepository) FindByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE LOWER(email) = LOWER($1)`
	return r.getOne(ctx, "find employee by email", query, email)
}

// GetByInvitationToken resolves an invitation secret
func (r *PostgresEmployeeRepository) GetByInvitationToken(ctx context.Context, token string) (*domain.Employee, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE invitation_token = $1`
	return r.getOne(ctx, "get employee by invitation", query, token)
}

func (r *PostgresEmployeeRepository) getOne(ctx context.Context, op, query string, args ...any) (*domain.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err, op)
	}
	if err := r.loadHistory(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresEmployeeRepository) loadHistory(ctx context.Context, e *domain.Employee) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_status, to_status, changed_by, changed_at, reason, notes
		FROM employee_status_history
		WHERE employee_id = $1
		ORDER BY position
	`, e.ID)
	if err != nil {
		return translateError(err, "load status history")
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.StatusChange
		var from, to string
		if err := rows.Scan(&h.ID, &from, &to, &h.ChangedBy, &h.ChangedAt, &h.Reason, &h.Notes); err != nil {
			return fmt.Errorf("failed to scan status history: %w", err)
		}
		h.From, h.To = domain.Status(from), domain.Status(to)
		e.StatusHistory = append(e.StatusHistory, h)
	}
	return rows.Err()
}

// List returns one page of an organization's employees. Items carry no status history.
func (r *PostgresEmployeeRepository) List(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	where, args := listFilter(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE `+where, args...).Scan(&total); err != nil {
		return nil, translateError(err, "count employees")
	}

	column, ok := sortColumns[q.SortField]
	if !ok {
		return nil, domain.Validation("sortBy", "unsupported sort field")
	}
	dir := "DESC"
	if q.SortDir == domain.SortAsc {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE %s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		employeeColumns, where, column, dir, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return nil, translateError(err, "list employees")
	}
	defer rows.Close()

	items := make([]*domain.Employee, 0, q.PageSize)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return &domain.ListResult{
		Items:      items,
		TotalCount: total,
		TotalPages: domain.TotalPagesFor(total, q.PageSize),
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

// listFilter builds the WHERE clause. The organization predicate is always first.
func listFilter(q domain.ListQuery) (string, []any) {
	clauses := []string{"organization_id = $1"}
	args := []any{q.OrganizationID}

	if !q.IncludeDeleted {
		clauses = append(clauses, "is_deleted = FALSE")
	}
	if !q.IncludeArchived {
		clauses = append(clauses, "employment_status = 'employed'")
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d OR department ILIKE $%[1]d OR position ILIKE $%[1]d)", n))
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	e := &domain.Employee{}
	var (
		invitedBy, nationalID, invitationToken, archivedBy, archiveReason sql.NullString
		dob, startDate, archivedAt, deletedAt                             sql.NullTime
		employeeType, invitationStatus, status, employmentStatus          string
	)
	err := row.Scan(
		&e.ID, &e.OrganizationID, &invitedBy, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.Address, &e.Gender,
		&dob, &e.Age, &nationalID, &employeeType, &e.LicenseNumber, &e.InternYear, &e.Department, &e.Position,
		&startDate, &e.EmergencyContact.Name, &e.EmergencyContact.Phone, &e.EmergencyContact.Relationship,
		&e.Salary, &e.PasswordHash, &invitationStatus, &invitationToken, &e.InvitationExpires, &status,
		&employmentStatus, &archivedAt, &archivedBy, &archiveReason, &e.IsDeleted, &deletedAt,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.InvitedBy = invitedBy.String
	e.NationalID = nationalID.String
	e.InvitationToken = invitationToken.String
	e.ArchivedBy = archivedBy.String
	e.ArchiveReason = archiveReason.String
	e.DateOfBirth = timePtr(dob)
	e.StartDate = timePtr(startDate)
	e.ArchivedAt = timePtr(archivedAt)
	e.DeletedAt = timePtr(deletedAt)
	e.EmployeeType = domain.EmployeeType(employeeType)
	e.InvitationStatus = domain.InvitationStatus(invitationStatus)
	e.Status = domain.Status(status)
	e.EmploymentStatus = domain.EmploymentStatus(employmentStatus)
	return e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
