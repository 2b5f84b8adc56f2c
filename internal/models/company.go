package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CompanyVerificationStatus is the admin-controlled trust state of a company.
type CompanyVerificationStatus int

const (
	CompanyPending     CompanyVerificationStatus = 1 // registered, waiting for review
	CompanyUnderReview CompanyVerificationStatus = 2 // resubmitted or picked up by an admin
	CompanyApproved    CompanyVerificationStatus = 3 // may publish products and send requests
	CompanyRejected    CompanyVerificationStatus = 4 // blocked until resubmission
)

// Valid reports whether s is one of the known statuses.
func (s CompanyVerificationStatus) Valid() bool {
	switch s {
	case CompanyPending, CompanyUnderReview, CompanyApproved, CompanyRejected:
		return true
	default:
		return false
	}
}

func (s CompanyVerificationStatus) String() string {
	switch s {
	case CompanyPending:
		return "Pending"
	case CompanyUnderReview:
		return "UnderReview"
	case CompanyApproved:
		return "Approved"
	case CompanyRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("CompanyVerificationStatus(%d)", int(s))
	}
}

// Reviewable reports whether an admin may still decide on the company.
func (s CompanyVerificationStatus) Reviewable() bool {
	switch s {
	case CompanyPending, CompanyUnderReview:
		return true
	case CompanyApproved, CompanyRejected:
		return false
	default:
		return false
	}
}

// UnmarshalJSON rejects numbers outside the closed set.
func (s *CompanyVerificationStatus) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v := CompanyVerificationStatus(n)
	if !v.Valid() {
		return fmt.Errorf("unknown company verification status %d", n)
	}
	*s = v
	return nil
}

// Company is a registered marketplace participant.
type Company struct {
	ID                 int64                     `json:"id"`
	Name               string                    `json:"name"`
	TaxNumber          string                    `json:"taxNumber"`
	MersisNumber       string                    `json:"mersisNumber"`
	Address            string                    `json:"address"`
	Phone              string                    `json:"phone"`
	Email              string                    `json:"email"`
	VerificationStatus CompanyVerificationStatus `json:"verificationStatus"`
	RejectionReason    *string                   `json:"rejectionReason,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

// CompanyRequest is the registration payload.
type CompanyRequest struct {
	Name         string `json:"name"`
	TaxNumber    string `json:"taxNumber"`
	MersisNumber string `json:"mersisNumber"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// CompanyUpdate carries the editable, non-legal profile fields. The legal
// identity fields are listed only so that attempts to change them can be refused.
type CompanyUpdate struct {
	Address      *string `json:"address,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Name         *string `json:"name,omitempty"`
	TaxNumber    *string `json:"taxNumber,omitempty"`
	MersisNumber *string `json:"mersisNumber,omitempty"`
}

// TouchesLegalIdentity reports whether the update tries to modify immutable fields.
func (u CompanyUpdate) TouchesLegalIdentity() bool {
	return u.Name != nil || u.TaxNumber != nil || u.MersisNumber != nil
}

// Empty reports whether no editable field is set.
func (u CompanyUpdate) Empty() bool {
	return u.Address == nil && u.Phone == nil && u.Email == nil
}

// VerificationDecision is the admin review payload.
type VerificationDecision struct {
	Approve         bool   `json:"approve"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}
