package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the invitation axis of an employee record
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationCompleted InvitationStatus = "completed"
	InvitationExpired   InvitationStatus = "expired"
)

// Status is the admin-driven activation axis
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
)

// EmploymentStatus is the archive axis ("former employee" marker)
type EmploymentStatus string

const (
	EmploymentEmployed EmploymentStatus = "employed"
	EmploymentArchived EmploymentStatus = "archived"
)

// EmployeeType drives which type-specific profile fields are required
type EmployeeType string

const (
	EmployeeTypeAdvocate EmployeeType = "advocate"
	EmployeeTypeIntern   EmployeeType = "intern"
	EmployeeTypeStaff    EmployeeType = "staff"
	EmployeeTypeOther    EmployeeType = "other"
)

const (
	MaxArchiveReasonLength = 200
	DefaultArchiveReason   = "No reason provided"
	archiveHistoryReason   = "Archived by admin"
	unarchiveHistoryReason = "Unarchived by admin"
	deleteHistoryReason    = "Deleted by admin"
	restoreHistoryReason   = "Restored by admin"
)

// ParseStatus validates a status value against the fixed enum
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusActive, StatusInactive, StatusTerminated:
		return st, true
	}
	return "", false
}

// ParseEmployeeType validates an employee type value
func ParseEmployeeType(s string) (EmployeeType, bool) {
	switch t := EmployeeType(s); t {
	case EmployeeTypeAdvocate, EmployeeTypeIntern, EmployeeTypeStaff, EmployeeTypeOther:
		return t, true
	}
	return "", false
}

// EmergencyContact is the emergency contact triplet
type EmergencyContact struct {
	Name         string
	Phone        string
	Relationship string
}

// Complete reports whether all three fields are present
func (c EmergencyContact) Complete() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Phone) != "" && strings.TrimSpace(c.Relationship) != ""
}

// StatusChange is one entry of the append-only status audit trail
type StatusChange struct {
	ID        string
	From      Status
	To        Status
	ChangedBy string
	ChangedAt time.Time
	Reason    string
	Notes     string
}

// Employee is the central mutable entity of an organization.
// Empty strings stand for absent values (NationalID, ArchivedBy, InvitationToken, ...).
type Employee struct {
	ID             string
	OrganizationID string
	InvitedBy      string

	FirstName string
	LastName  string
	Email     string

	Phone            string
	Address          string
	Gender           string
	DateOfBirth      *time.Time
	Age              int
	NationalID       string
	EmployeeType     EmployeeType
	LicenseNumber    string
	InternYear       int
	Department       string
	Position         string
	StartDate        *time.Time
	EmergencyContact EmergencyContact

	Salary       float64
	PasswordHash string

	InvitationStatus  InvitationStatus
	InvitationToken   string
	InvitationExpires time.Time

	Status Status

	EmploymentStatus EmploymentStatus
	ArchivedAt       *time.Time
	ArchivedBy       string
	ArchiveReason    string

	IsDeleted bool
	DeletedAt *time.Time

	StatusHistory []StatusChange

	// Version is the optimistic concurrency token checked on every save
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an email for case-insensitive matching
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewInvitedEmployee builds a fresh record in the pending invitation state
func NewInvitedEmployee(orgID, invitedBy, firstName, lastName, email string, salary float64, secret string, now time.Time, ttl time.Duration) *Employee {
	return &Employee{
		ID:                uuid.NewString(),
		OrganizationID:    orgID,
		InvitedBy:         invitedBy,
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Email:             NormalizeEmail(email),
		Salary:            salary,
		InvitationStatus:  InvitationPending,
		InvitationToken:   secret,
		InvitationExpires: now.Add(ttl),
		Status:            StatusPending,
		EmploymentStatus:  EmploymentEmployed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CheckReinvite reports whether a new invitation may be issued for an existing record
func (e *Employee) CheckReinvite() error {
	switch e.InvitationStatus {
	case InvitationCompleted:
		return ErrAlreadyRegistered
	case InvitationPending:
		return ErrInvitationAlreadySent
	}
	return nil
}

// Reinvite loops an expired invitation back to pending. Profile fields already
// present are preserved; only invitation-relevant fields are overwritten.
func (e *Employee) Reinvite(invitedBy, firstName, lastName string, salary float64, secret string, now time.Time, ttl time.Duration) error {
	if err := e.CheckReinvite(); err != nil {
		return err
	}
	e.InvitedBy = invitedBy
	e.FirstName = strings.TrimSpace(firstName)
	e.LastName = strings.TrimSpace(lastName)
	e.Salary = salary
	e.InvitationStatus = InvitationPending
	e.InvitationToken = secret
	e.InvitationExpires = now.Add(ttl)
	e.Status = StatusPending
	e.UpdatedAt = now
	return nil
}

// InvitationDue reports whether a pending invitation has passed its expiry
func (e *Employee) InvitationDue(now time.Time) bool {
	return e.InvitationStatus == InvitationPending && e.InvitationExpires.Before(now)
}

// ExpireInvitation flips a due pending invitation to expired and returns true if it did
func (e *Employee) ExpireInvitation(now time.Time) bool {
	if !e.InvitationDue(now) {
		return false
	}
	e.InvitationStatus = InvitationExpired
	e.InvitationToken = ""
	e.UpdatedAt = now
	return true
}

// Registration carries the profile an invited employee submits
type Registration struct {
	Phone            string
	Address          string
	Gender           string
	DateOfBirth      time.Time
	Age              int
	NationalID       string
	EmployeeType     EmployeeType
	LicenseNumber    string
	InternYear       int
	Department       string
	Position         string
	StartDate        time.Time
	EmergencyContact EmergencyContact
	Salary           *float64
}

// CompleteRegistration moves a pending invitation to completed. The status axis
// stays pending until an admin activates the employee.
func (e *Employee) CompleteRegistration(reg Registration, passwordHash string, now time.Time) error {
	switch e.InvitationStatus {
	case InvitationCompleted:
		return ErrAlreadyRegistered
	case InvitationExpired:
		return ErrInvitationExpired
	}
	if e.InvitationDue(now) {
		return ErrInvitationExpired
	}
	dob := reg.DateOfBirth
	start := reg.StartDate
	e.Phone = strings.TrimSpace(reg.Phone)
	e.Address = strings.TrimSpace(reg.Address)
	e.Gender = reg.Gender
	e.DateOfBirth = &dob
	e.Age = reg.Age
	e.NationalID = strings.TrimSpace(reg.NationalID)
	e.EmployeeType = reg.EmployeeType
	e.LicenseNumber = ""
	e.InternYear = 0
	switch reg.EmployeeType {
	case EmployeeTypeAdvocate:
		e.LicenseNumber = strings.TrimSpace(reg.LicenseNumber)
	case EmployeeTypeIntern:
		e.InternYear = reg.InternYear
	}
	e.Department = strings.TrimSpace(reg.Department)
	e.Position = strings.TrimSpace(reg.Position)
	e.StartDate = &start
	e.EmergencyContact = reg.EmergencyContact
	if reg.Salary != nil {
		e.Salary = *reg.Salary
	}
	e.PasswordHash = passwordHash
	e.InvitationStatus = InvitationCompleted
	e.InvitationToken = ""
	e.Status = StatusPending
	e.UpdatedAt = now
	return nil
}

// CanAuthenticate reports whether the employee may log in
func (e *Employee) CanAuthenticate() bool {
	return e.InvitationStatus == InvitationCompleted && e.Status == StatusActive && !e.IsDeleted && e.PasswordHash != ""
}

var strictTransitions = map[Status][]Status{
	StatusPending:  {StatusActive, StatusTerminated},
	StatusActive:   {StatusInactive, StatusTerminated},
	StatusInactive: {StatusActive, StatusTerminated},
}

// TransitionAllowed reports whether from -> to follows the narrative lifecycle
// (pending -> active <-> inactive -> terminated). Only consulted in strict mode.
func TransitionAllowed(from, to Status) bool {
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChangeStatus sets the activation status and records the transition.
// Any status may move to any other unless strict is set. Archived records stay
// terminated until they are unarchived.
func (e *Employee) ChangeStatus(to Status, by, reason, notes string, now time.Time, strict bool) error {
	if _, ok := ParseStatus(string(to)); !ok {
		return Validation("status", "status must be one of pending, active, inactive, terminated")
	}
	if e.EmploymentStatus == EmploymentArchived {
		return ErrEmployeeArchived
	}
	if strict && !TransitionAllowed(e.Status, to) {
		return ErrInvalidTransition
	}
	from := e.Status
	e.Status = to
	e.appendHistory(from, to, by, reason, notes, now)
	e.UpdatedAt = now
	return nil
}

// Archive marks a former employee. Archiving always terminates.
func (e *Employee) Archive(by, reason, notes string, now time.Time) error {
	if e.IsDeleted {
		return ErrNotFound
	}
	if e.EmploymentStatus == EmploymentArchived {
		return ErrAlreadyArchived
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultArchiveReason
	}
	if len([]rune(reason)) > MaxArchiveReasonLength {
		return Validation("reason", "archive reason must be at most 200 characters")
	}
	from := e.Status
	at := now
	e.EmploymentStatus = EmploymentArchived
	e.ArchivedAt = &at
	e.ArchivedBy = by
	e.ArchiveReason = reason
	e.Status = StatusTerminated
	e.appendHistory(from, StatusTerminated, by, archiveHistoryReason, notes, now)
	e.UpdatedAt = now
	return nil
}

// ArchiveInfo is the archive sub-state cleared by Unarchive
type ArchiveInfo struct {
	ArchivedAt    *time.Time
	ArchivedBy    string
	ArchiveReason string
}

// Unarchive returns an archived record to employed. Status goes to pending so an
// admin re-reviews the employee instead of restoring the pre-archive status.
func (e *Employee) Unarchive(by, notes string, now time.Time) (ArchiveInfo, error) {
	if e.IsDeleted || e.EmploymentStatus != EmploymentArchived {
		return ArchiveInfo{}, ErrNotFound
	}
	prev := ArchiveInfo{ArchivedAt: e.ArchivedAt, ArchivedBy: e.ArchivedBy, ArchiveReason: e.ArchiveReason}
	from := e.Status
	e.EmploymentStatus = EmploymentEmployed
	e.ArchivedAt = nil
	e.ArchivedBy = ""
	e.ArchiveReason = ""
	e.Status = StatusPending
	e.appendHistory(from, StatusPending, by, unarchiveHistoryReason, notes, now)
	e.UpdatedAt = now
	return prev, nil
}

// SoftDelete hides an erroneous record. Independent of the archive axis.
func (e *Employee) SoftDelete(by string, now time.Time) error {
	if e.IsDeleted {
		return ErrAlreadyDeleted
	}
	at := now
	from := e.Status
	e.IsDeleted = true
	e.DeletedAt = &at
	e.Status = StatusTerminated
	if from != StatusTerminated {
		e.appendHistory(from, StatusTerminated, by, deleteHistoryReason, "", now)
	}
	e.UpdatedAt = now
	return nil
}

// Restore undoes a soft delete and puts the employee back into review.
// An archived record comes back still terminated.
func (e *Employee) Restore(by string, now time.Time) error {
	if !e.IsDeleted {
		return ErrNotDeleted
	}
	from := e.Status
	to := StatusPending
	if e.EmploymentStatus == EmploymentArchived {
		to = StatusTerminated
	}
	e.IsDeleted = false
	e.DeletedAt = nil
	e.Status = to
	if from != to {
		e.appendHistory(from, to, by, restoreHistoryReason, "", now)
	}
	e.UpdatedAt = now
	return nil
}

func (e *Employee) appendHistory(from, to Status, by, reason, notes string, now time.Time) {
	e.StatusHistory = append(e.StatusHistory, StatusChange{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		ChangedBy: by,
		ChangedAt: now,
		Reason:    reason,
		Notes:     notes,
	})
}

// ComputeAge returns whole years elapsed between dob and now
func ComputeAge(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// ValidateTypeFields checks the sub-fields an employee type requires
func ValidateTypeFields(t EmployeeType, licenseNumber string, internYear int) error {
	switch t {
	case EmployeeTypeAdvocate:
		if strings.TrimSpace(licenseNumber) == "" {
			return Validation("licenseNumber", "license number is required for advocates")
		}
	case EmployeeTypeIntern:
		if internYear < 1 {
			return Validation("internYear", "intern year is required for interns")
		}
	case EmployeeTypeStaff, EmployeeTypeOther:
	default:
		return Validation("employeeType", "employee type must be one of advocate, intern, staff, other")
	}
	return nil
}
