package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// uniqueFields maps unique index names to the API field they protect
var uniqueFields = map[string]string{
	"organizations_name_key":         "organizationName",
	"organizations_email_key":        "organizationEmail",
	"admins_email_key":               "email",
	"admins_username_key":            "username",
	"employees_email_key":            "email",
	"employees_national_id_key":      "nationalId",
	"employees_invitation_token_key": "invitationToken",
}

// translateError turns driver errors into domain errors and wraps everything else
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if field, ok := uniqueFields[pqErr.Constraint]; ok {
			return domain.Conflict(field)
		}
		return domain.Conflict("record")
	}
	if errors.As(err, &pqErr) && pqErr.Code == checkViolation {
		return &domain.Error{
			Kind:    domain.KindInvalidState,
			Code:    "ConstraintViolation",
			Message: "record would violate " + pqErr.Constraint,
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
