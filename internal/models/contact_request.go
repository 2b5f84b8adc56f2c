package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestStatus is the review state of a contact request.
type RequestStatus int

const (
	RequestPending  RequestStatus = 1 // waiting for the seller
	RequestApproved RequestStatus = 2 // seller contact disclosed to the buyer
	RequestRejected RequestStatus = 3 // declined by the seller
	RequestExpired  RequestStatus = 4 // not reviewed in time
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestExpired:
		return true
	default:
		return false
	}
}

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "Pending"
	case RequestApproved:
		return "Approved"
	case RequestRejected:
		return "Rejected"
	case RequestExpired:
		return "Expired"
	default:
		return fmt.Sprintf("RequestStatus(%d)", int(s))
	}
}

// Terminal reports whether no review transition may leave s.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestPending:
		return false
	case RequestApproved, RequestRejected, RequestExpired:
		return true
	default:
		return true
	}
}

// Active reports whether s counts against the one-request-per-product rule.
func (s RequestStatus) Active() bool {
	switch s {
	case RequestPending, RequestApproved:
		return true
	case RequestRejected, RequestExpired:
		return false
	default:
		return false
	}
}

// Discloses reports whether a buyer may see seller contact fields. Approval is
// the only status that releases them.
func (s RequestStatus) Discloses() bool {
	switch s {
	case RequestApproved:
		return true
	case RequestPending, RequestRejected, RequestExpired:
		return false
	default:
		return false
	}
}

// UnmarshalJSON rejects numbers outside the closed set.
func (s *RequestStatus) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v := RequestStatus(n)
	if !v.Valid() {
		return fmt.Errorf("unknown request status %d", n)
	}
	*s = v
	return nil
}

// SellerContact holds the fields released to a buyer on approval.
type SellerContact struct {
	Phone       string
	Email       string
	CompanyName string
}

// ContactRequest is a buyer's interest in a product, reviewed by the seller.
type ContactRequest struct {
	ID                int64         `json:"id"`
	ProductID         int64         `json:"productId"`
	BuyerCompanyID    int64         `json:"buyerCompanyId"`
	SellerCompanyID   int64         `json:"sellerCompanyId"`
	Message           string        `json:"message"`
	ContactPhone      *string       `json:"contactPhone,omitempty"`
	NDAAccepted       bool          `json:"ndaAccepted"`
	Status            RequestStatus `json:"status"`
	RejectionReason   *string       `json:"rejectionReason,omitempty"`
	SellerPhone       *string       `json:"sellerPhone,omitempty"`
	SellerEmail       *string       `json:"sellerEmail,omitempty"`
	SellerCompanyName *string       `json:"sellerCompanyName,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	ReviewedAt        *time.Time    `json:"reviewedAt,omitempty"`
}

// SetSellerContact fills the seller contact fields with copies of c.
func (r *ContactRequest) SetSellerContact(c SellerContact) {
	phone, email, name := c.Phone, c.Email, c.CompanyName
	r.SellerPhone, r.SellerEmail, r.SellerCompanyName = &phone, &email, &name
}

// SellerContact returns the disclosed seller contact, if any field is present.
func (r ContactRequest) SellerContact() (SellerContact, bool) {
	if r.SellerPhone == nil && r.SellerEmail == nil && r.SellerCompanyName == nil {
		return SellerContact{}, false
	}
	var c SellerContact
	if r.SellerPhone != nil {
		c.Phone = *r.SellerPhone
	}
	if r.SellerEmail != nil {
		c.Email = *r.SellerEmail
	}
	if r.SellerCompanyName != nil {
		c.CompanyName = *r.SellerCompanyName
	}
	return c, true
}

func (r *ContactRequest) clearSellerContact() {
	r.SellerPhone, r.SellerEmail, r.SellerCompanyName = nil, nil, nil
}

// BuyerView returns the request as the buyer company may see it: seller
// contact fields are present if and only if the request is approved.
func (r ContactRequest) BuyerView() ContactRequest {
	out := r
	out.clearSellerContact()
	if contact, ok := r.SellerContact(); ok && r.Status.Discloses() {
		out.SetSellerContact(contact)
	}
	return out
}

// SellerView returns the request as the seller company sees it. The seller
// already knows its own contact details, so they are never echoed back.
func (r ContactRequest) SellerView() ContactRequest {
	out := r
	out.clearSellerContact()
	return out
}

// ViewFor picks the view matching the caller's side of the request. Callers
// that are neither buyer nor seller get the most restrictive view.
func (r ContactRequest) ViewFor(companyID int64) ContactRequest {
	switch companyID {
	case r.BuyerCompanyID:
		return r.BuyerView()
	case r.SellerCompanyID:
		return r.SellerView()
	default:
		return r.SellerView()
	}
}

// NewContactRequest is the buyer's submission. NDAAccepted must be true.
type NewContactRequest struct {
	ProductID    int64   `json:"productId"`
	Message      string  `json:"message"`
	ContactPhone *string `json:"contactPhone,omitempty"`
	NDAAccepted  bool    `json:"ndaAccepted"`
}

// ReviewDecision is the seller's answer to a pending request.
type ReviewDecision struct {
	Approve         bool   `json:"approve"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// RequestRole selects which side of the exchange a listing is for.
type RequestRole string

const (
	RoleReceived RequestRole = "received" // requests addressed to the caller as seller
	RoleSent     RequestRole = "sent"     // requests the caller sent as buyer
)

// Valid reports whether r is a known listing role.
func (r RequestRole) Valid() bool {
	return r == RoleReceived || r == RoleSent
}
