package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

func invited() *Employee {
	return NewInvitedEmployee("org-1", "admin-1", " Jane ", "Doe", "Jane@X.com", 0, "secret-1", testNow, week)
}

func registration() Registration {
	return Registration{
		Phone:            "+1555000",
		Address:          "1 Main St",
		Gender:           "female",
		DateOfBirth:      time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
		Age:              35,
		NationalID:       "NID-1",
		EmployeeType:     EmployeeTypeStaff,
		Department:       "Legal",
		Position:         "Clerk",
		StartDate:        testNow,
		EmergencyContact: EmergencyContact{Name: "John", Phone: "+1555111", Relationship: "spouse"},
	}
}

func assertArchiveInvariant(t *testing.T, e *Employee) {
	t.Helper()
	archived := e.EmploymentStatus == EmploymentArchived
	complete := e.ArchivedAt != nil && e.ArchivedBy != "" && e.ArchiveReason != "" && e.Status == StatusTerminated
	if archived {
		assert.True(t, complete, "archived record must carry archive metadata and be terminated")
	} else {
		assert.Nil(t, e.ArchivedAt)
		assert.Empty(t, e.ArchivedBy)
		assert.Empty(t, e.ArchiveReason)
	}
}

func TestNewInvitedEmployee(t *testing.T) {
	e := invited()
	assert.Equal(t, "jane@x.com", e.Email)
	assert.Equal(t, "Jane", e.FirstName)
	assert.Equal(t, InvitationPending, e.InvitationStatus)
	assert.Equal(t, StatusPending, e.Status)
	assert.Equal(t, EmploymentEmployed, e.EmploymentStatus)
	assert.Equal(t, 0.0, e.Salary)
	assert.Equal(t, testNow.Add(week), e.InvitationExpires)
	assertArchiveInvariant(t, e)
}

func TestReinviteRules(t *testing.T) {
	e := invited()
	require.ErrorIs(t, e.Reinvite("admin-2", "Jane", "Doe", 10, "secret-2", testNow, week), ErrInvitationAlreadySent)

	later := testNow.Add(week + time.Second)
	require.True(t, e.ExpireInvitation(later))
	assert.Equal(t, InvitationExpired, e.InvitationStatus)
	assert.Empty(t, e.InvitationToken)

	e.NationalID = "NID-keep"
	require.NoError(t, e.Reinvite("admin-2", "Janet", "Doe", 10, "secret-2", later, week))
	assert.Equal(t, InvitationPending, e.InvitationStatus)
	assert.Equal(t, "secret-2", e.InvitationToken)
	assert.Equal(t, "Janet", e.FirstName)
	assert.Equal(t, 10.0, e.Salary)
	assert.Equal(t, "NID-keep", e.NationalID)
	assert.Equal(t, later.Add(week), e.InvitationExpires)

	require.NoError(t, e.CompleteRegistration(registration(), "hash", later))
	require.ErrorIs(t, e.Reinvite("admin-2", "Jane", "Doe", 0, "secret-3", later, week), ErrAlreadyRegistered)
}

func TestExpireInvitationOnlyStrictlyAfterExpiry(t *testing.T) {
	e := invited()
	assert.False(t, e.ExpireInvitation(e.InvitationExpires))
	assert.True(t, e.ExpireInvitation(e.InvitationExpires.Add(time.Nanosecond)))
	assert.False(t, e.ExpireInvitation(e.InvitationExpires.Add(time.Hour)), "already expired")
}

func TestCompleteRegistration(t *testing.T) {
	e := invited()
	e.Salary = 0
	require.NoError(t, e.CompleteRegistration(registration(), "hash", testNow.Add(time.Hour)))
	assert.Equal(t, InvitationCompleted, e.InvitationStatus)
	assert.Equal(t, StatusPending, e.Status)
	assert.Empty(t, e.InvitationToken)
	assert.Equal(t, "hash", e.PasswordHash)
	assert.Equal(t, 0.0, e.Salary, "salary kept when not supplied")
	assert.False(t, e.CanAuthenticate(), "pending employees cannot log in")

	salary := 5000.0
	e2 := invited()
	reg := registration()
	reg.Salary = &salary
	require.NoError(t, e2.CompleteRegistration(reg, "hash", testNow))
	assert.Equal(t, 5000.0, e2.Salary)

	require.ErrorIs(t, e2.CompleteRegistration(reg, "hash", testNow), ErrAlreadyRegistered)
}

func TestCompleteRegistrationAfterExpiry(t *testing.T) {
	e := invited()
	err := e.CompleteRegistration(registration(), "hash", e.InvitationExpires.Add(time.Second))
	require.ErrorIs(t, err, ErrInvitationExpired)
	assert.Equal(t, InvitationPending, e.InvitationStatus, "registration must not partially apply")
	assert.Empty(t, e.PasswordHash)
}

func TestChangeStatusPermissive(t *testing.T) {
	e := invited()
	require.NoError(t, e.ChangeStatus(StatusTerminated, "admin-1", "", "", testNow, false))
	require.NoError(t, e.ChangeStatus(StatusActive, "admin-1", "rehired", "n", testNow, false))
	require.Len(t, e.StatusHistory, 2)
	last := e.StatusHistory[1]
	assert.Equal(t, StatusTerminated, last.From)
	assert.Equal(t, StatusActive, last.To)
	assert.Equal(t, "admin-1", last.ChangedBy)
	assert.Equal(t, "rehired", last.Reason)

	err := e.ChangeStatus(Status("retired"), "admin-1", "", "", testNow, false)
	assert.True(t, IsKind(err, KindValidation))
	assert.Len(t, e.StatusHistory, 2)
}

func TestChangeStatusStrict(t *testing.T) {
	e := invited()
	require.NoError(t, e.ChangeStatus(StatusActive, "a", "", "", testNow, true))
	require.NoError(t, e.ChangeStatus(StatusInactive, "a", "", "", testNow, true))
	require.NoError(t, e.ChangeStatus(StatusActive, "a", "", "", testNow, true))
	require.NoError(t, e.ChangeStatus(StatusTerminated, "a", "", "", testNow, true))
	require.ErrorIs(t, e.ChangeStatus(StatusActive, "a", "", "", testNow, true), ErrInvalidTransition)
}

func TestArchiveUnarchiveRoundTrip(t *testing.T) {
	e := invited()
	require.NoError(t, e.ChangeStatus(StatusActive, "a", "", "", testNow, false))

	require.NoError(t, e.Archive("admin-1", "", "left firm", testNow))
	assert.Equal(t, EmploymentArchived, e.EmploymentStatus)
	assert.Equal(t, DefaultArchiveReason, e.ArchiveReason)
	assertArchiveInvariant(t, e)
	entry := e.StatusHistory[len(e.StatusHistory)-1]
	assert.Equal(t, StatusActive, entry.From)
	assert.Equal(t, StatusTerminated, entry.To)
	assert.Equal(t, "Archived by admin", entry.Reason)
	assert.Equal(t, "left firm", entry.Notes)

	require.ErrorIs(t, e.Archive("admin-1", "", "", testNow), ErrAlreadyArchived)

	prev, err := e.Unarchive("admin-1", "returning", testNow)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", prev.ArchivedBy)
	assert.Equal(t, DefaultArchiveReason, prev.ArchiveReason)
	assert.Equal(t, EmploymentEmployed, e.EmploymentStatus)
	assert.Equal(t, StatusPending, e.Status, "unarchive does not restore the pre-archive status")
	assertArchiveInvariant(t, e)
	entry = e.StatusHistory[len(e.StatusHistory)-1]
	assert.Equal(t, StatusTerminated, entry.From)
	assert.Equal(t, StatusPending, entry.To)

	_, err = e.Unarchive("admin-1", "", testNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveReasonTooLong(t *testing.T) {
	e := invited()
	err := e.Archive("a", strings.Repeat("x", 201), "", testNow)
	assert.True(t, IsKind(err, KindValidation))
	assert.Equal(t, EmploymentEmployed, e.EmploymentStatus)
}

func TestSoftDeleteIsOrthogonalToArchive(t *testing.T) {
	e := invited()
	require.NoError(t, e.Archive("a", "gone", "", testNow))
	require.NoError(t, e.SoftDelete("a", testNow))
	assert.True(t, e.IsDeleted)
	assert.NotNil(t, e.DeletedAt)
	assert.Equal(t, StatusTerminated, e.Status)
	assert.Equal(t, EmploymentArchived, e.EmploymentStatus)

	require.ErrorIs(t, e.SoftDelete("a", testNow), ErrAlreadyDeleted)
	_, err := e.Unarchive("a", "", testNow)
	require.ErrorIs(t, err, ErrNotFound, "deleted records cannot be unarchived")
	require.ErrorIs(t, e.Archive("a", "", "", testNow), ErrNotFound)

	require.NoError(t, e.Restore("a", testNow))
	assert.False(t, e.IsDeleted)
	assert.Nil(t, e.DeletedAt)
	assert.Equal(t, StatusTerminated, e.Status, "an archived record stays terminated after restore")
	assertArchiveInvariant(t, e)
	require.ErrorIs(t, e.Restore("a", testNow), ErrNotDeleted)
}

func TestRestoreReturnsEmployedRecordToReview(t *testing.T) {
	e := invited()
	require.NoError(t, e.ChangeStatus(StatusActive, "a", "", "", testNow, false))
	require.NoError(t, e.SoftDelete("a", testNow))
	require.NoError(t, e.Restore("a", testNow))
	assert.Equal(t, StatusPending, e.Status)
	entry := e.StatusHistory[len(e.StatusHistory)-1]
	assert.Equal(t, StatusTerminated, entry.From)
	assert.Equal(t, StatusPending, entry.To)
}

func TestArchivedRecordRejectsStatusChange(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusActive, StatusInactive, StatusTerminated} {
		t.Run(string(to), func(t *testing.T) {
			e := invited()
			require.NoError(t, e.Archive("a", "", "", testNow))
			history := len(e.StatusHistory)

			err := e.ChangeStatus(to, "a", "", "", testNow, false)
			require.ErrorIs(t, err, ErrEmployeeArchived)
			assert.True(t, IsKind(err, KindInvalidState))
			assert.Equal(t, StatusTerminated, e.Status)
			assert.Len(t, e.StatusHistory, history)
			assertArchiveInvariant(t, e)
		})
	}
}

func TestStatusHistoryIsAppendOnly(t *testing.T) {
	e := invited()
	require.NoError(t, e.ChangeStatus(StatusActive, "a", "first", "", testNow, false))
	first := e.StatusHistory[0]
	require.NoError(t, e.Archive("a", "", "", testNow))
	require.NoError(t, e.SoftDelete("a", testNow))
	_, _ = e.Unarchive("a", "", testNow)
	require.NoError(t, e.Restore("a", testNow))
	assert.Equal(t, first, e.StatusHistory[0])
	assert.Len(t, e.StatusHistory, 2)
}

func TestComputeAge(t *testing.T) {
	dob := time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 35, ComputeAge(dob, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36, ComputeAge(dob, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidateTypeFields(t *testing.T) {
	assert.Error(t, ValidateTypeFields(EmployeeTypeAdvocate, "", 0))
	assert.NoError(t, ValidateTypeFields(EmployeeTypeAdvocate, "LIC-9", 0))
	assert.Error(t, ValidateTypeFields(EmployeeTypeIntern, "", 0))
	assert.NoError(t, ValidateTypeFields(EmployeeTypeIntern, "", 2))
	assert.NoError(t, ValidateTypeFields(EmployeeTypeStaff, "", 0))
	assert.Error(t, ValidateTypeFields(EmployeeType("boss"), "", 0))
}

func TestErrorMatching(t *testing.T) {
	err := Conflict("nationalId")
	assert.True(t, IsConflictOn(err, "nationalId"))
	assert.False(t, IsConflictOn(err, "email"))
	assert.True(t, IsKind(err, KindConflict))
	assert.ErrorIs(t, Validation("x", "bad"), Validation("y", "other"))
}
