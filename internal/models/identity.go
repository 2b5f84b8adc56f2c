package models

import "github.com/google/uuid"

// UserRole is the platform role carried in the access token.
type UserRole string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

// Identity is the authenticated caller behind a request.
type Identity struct {
	UserID    uuid.UUID `json:"userId"`
	CompanyID *int64    `json:"companyId,omitempty"`
	Role      UserRole  `json:"role"`
}

// IsAdmin reports whether the caller may run admin workflows.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Company returns the caller's company id, if the caller belongs to one.
func (i Identity) Company() (int64, bool) {
	if i.CompanyID == nil {
		return 0, false
	}
	return *i.CompanyID, true
}

// Owns reports whether the caller acts for the given company.
func (i Identity) Owns(companyID int64) bool {
	id, ok := i.Company()
	return ok && id == companyID
}
