package handler

import (
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

const dateLayout = "2006-01-02"

// EmergencyContactResponse is the emergency contact triplet
type EmergencyContactResponse struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// StatusChangeResponse is one status history entry
type StatusChangeResponse struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Reason    string    `json:"reason,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// EmployeeResponse is the public view of an employee. Password hashes and
// invitation secrets are never rendered.
type EmployeeResponse struct {
	ID                string                    `json:"id"`
	OrganizationID    string                    `json:"organizationId"`
	InvitedBy         string                    `json:"invitedBy,omitempty"`
	FirstName         string                    `json:"firstName"`
	LastName          string                    `json:"lastName"`
	Email             string                    `json:"email"`
	Phone             string                    `json:"phone,omitempty"`
	Address           string                    `json:"address,omitempty"`
	Gender            string                    `json:"gender,omitempty"`
	DateOfBirth       string                    `json:"dateOfBirth,omitempty"`
	Age               int                       `json:"age,omitempty"`
	NationalID        string                    `json:"nationalId,omitempty"`
	EmployeeType      string                    `json:"employeeType,omitempty"`
	LicenseNumber     string                    `json:"licenseNumber,omitempty"`
	InternYear        int                       `json:"internYear,omitempty"`
	Department        string                    `json:"department,omitempty"`
	Position          string                    `json:"position,omitempty"`
	StartDate         string                    `json:"startDate,omitempty"`
	EmergencyContact  *EmergencyContactResponse `json:"emergencyContact,omitempty"`
	Salary            float64                   `json:"salary"`
	InvitationStatus  string                    `json:"invitationStatus"`
	InvitationExpires *time.Time                `json:"invitationExpires,omitempty"`
	Status            string                    `json:"status"`
	EmploymentStatus  string                    `json:"employmentStatus"`
	ArchivedAt        *time.Time                `json:"archivedAt,omitempty"`
	ArchivedBy        string                    `json:"archivedBy,omitempty"`
	ArchiveReason     string                    `json:"archiveReason,omitempty"`
	IsDeleted         bool                      `json:"isDeleted"`
	DeletedAt         *time.Time                `json:"deletedAt,omitempty"`
	StatusHistory     []StatusChangeResponse    `json:"statusHistory,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

func newEmployeeResponse(e *domain.Employee) *EmployeeResponse {
	if e == nil {
		return nil
	}
	resp := &EmployeeResponse{
		ID:               e.ID,
		OrganizationID:   e.OrganizationID,
		InvitedBy:        e.InvitedBy,
		FirstName:        e.FirstName,
		LastName:         e.LastName,
		Email:            e.Email,
		Phone:            e.Phone,
		Address:          e.Address,
		Gender:           e.Gender,
		DateOfBirth:      formatDate(e.DateOfBirth),
		Age:              e.Age,
		NationalID:       e.NationalID,
		EmployeeType:     string(e.EmployeeType),
		LicenseNumber:    e.LicenseNumber,
		InternYear:       e.InternYear,
		Department:       e.Department,
		Position:         e.Position,
		StartDate:        formatDate(e.StartDate),
		Salary:           e.Salary,
		InvitationStatus: string(e.InvitationStatus),
		Status:           string(e.Status),
		EmploymentStatus: string(e.EmploymentStatus),
		ArchivedAt:       e.ArchivedAt,
		ArchivedBy:       e.ArchivedBy,
		ArchiveReason:    e.ArchiveReason,
		IsDeleted:        e.IsDeleted,
		DeletedAt:        e.DeletedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.InvitationStatus == domain.InvitationPending {
		expires := e.InvitationExpires
		resp.InvitationExpires = &expires
	}
	if e.EmergencyContact != (domain.EmergencyContact{}) {
		resp.EmergencyContact = &EmergencyContactResponse{
			Name:         e.EmergencyContact.Name,
			Phone:        e.EmergencyContact.Phone,
			Relationship: e.EmergencyContact.Relationship,
		}
	}
	for _, h := range e.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, StatusChangeResponse{
			ID:        h.ID,
			From:      string(h.From),
			To:        string(h.To),
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt,
			Reason:    h.Reason,
			Notes:     h.Notes,
		})
	}
	return resp
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// AdminResponse is the public view of an organization admin
type AdminResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

func newAdminResponse(a *domain.Admin) *AdminResponse {
	return &AdminResponse{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		Role:           string(a.Role),
		OrganizationID: a.OrganizationID,
	}
}

// OrganizationResponse is the public view of a tenant
type OrganizationResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	Country       string    `json:"country,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	PracticeAreas []string  `json:"practiceAreas"`
	SuperAdminID  string    `json:"superAdminId"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newOrganizationResponse(o *domain.Organization) *OrganizationResponse {
	if o == nil {
		return nil
	}
	areas := o.PracticeAreas
	if areas == nil {
		areas = []string{}
	}
	return &OrganizationResponse{
		ID:            o.ID,
		Name:          o.Name,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		City:          o.City,
		Country:       o.Country,
		Industry:      o.Industry,
		PracticeAreas: areas,
		SuperAdminID:  o.SuperAdminID,
		CreatedAt:     o.CreatedAt,
	}
}

// SessionResponse is returned by setup, login and registration. User is an
// AdminResponse or an EmployeeResponse depending on the principal kind.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      string    `json:"role"`
	User      any       `json:"user"`
}

func userView(admin *domain.Admin, employee *domain.Employee) any {
	if admin != nil {
		return newAdminResponse(admin)
	}
	return newEmployeeResponse(employee)
}
