package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedRequest() ContactRequest {
	req := ContactRequest{
		ID:              7,
		ProductID:       42,
		BuyerCompanyID:  1,
		SellerCompanyID: 2,
		Message:         "Need 50 units, please quote",
		NDAAccepted:     true,
		Status:          RequestApproved,
	}
	req.SetSellerContact(SellerContact{Phone: "+90 212 555 0101", Email: "sales@beta-motors.example", CompanyName: "Beta Motors"})
	return req
}

func TestBuyerView_disclosesOnlyWhenApproved(t *testing.T) {
	for _, status := range []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestExpired} {
		req := approvedRequest()
		req.Status = status

		view := req.BuyerView()
		contact, ok := view.SellerContact()
		if status == RequestApproved {
			require.True(t, ok, "approved request must disclose")
			assert.Equal(t, "Beta Motors", contact.CompanyName)
			assert.Equal(t, "sales@beta-motors.example", contact.Email)
			assert.Equal(t, "+90 212 555 0101", contact.Phone)
		} else {
			assert.False(t, ok, "status %s must not disclose", status)
			assert.Nil(t, view.SellerPhone)
			assert.Nil(t, view.SellerEmail)
			assert.Nil(t, view.SellerCompanyName)
		}
	}
}

func TestBuyerView_doesNotAliasSource(t *testing.T) {
	req := approvedRequest()
	view := req.BuyerView()
	*view.SellerPhone = "changed"
	assert.Equal(t, "+90 212 555 0101", *req.SellerPhone)
}

func TestViewFor(t *testing.T) {
	req := approvedRequest()
	assert.NotNil(t, req.ViewFor(1).SellerEmail, "buyer side sees approved contact")
	assert.Nil(t, req.ViewFor(2).SellerEmail, "seller side never gets its own contact echoed")
	assert.Nil(t, req.ViewFor(99).SellerEmail, "strangers get the restrictive view")
}

func TestContactRequest_sellerFieldsAreFlatOnTheWire(t *testing.T) {
	var cr ContactRequest
	raw := `{"id":7,"status":2,"sellerPhone":"+90 212 555","sellerEmail":"sales@beta.example","sellerCompanyName":"Beta Motors"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &cr))
	assert.Equal(t, RequestApproved, cr.Status)

	contact, ok := cr.SellerContact()
	require.True(t, ok)
	assert.Equal(t, SellerContact{Phone: "+90 212 555", Email: "sales@beta.example", CompanyName: "Beta Motors"}, contact)

	out, err := json.Marshal(cr.SellerView())
	require.NoError(t, err)
	for _, key := range []string{`"sellerPhone"`, `"sellerEmail"`, `"sellerCompanyName"`} {
		assert.NotContains(t, string(out), key)
	}
	assert.Contains(t, string(out), `"sellerCompanyId"`)
}

func TestRequestStatus_terminalAndActive(t *testing.T) {
	assert.False(t, RequestPending.Terminal())
	assert.True(t, RequestApproved.Terminal())
	assert.True(t, RequestRejected.Terminal())
	assert.True(t, RequestExpired.Terminal())

	assert.True(t, RequestPending.Active())
	assert.True(t, RequestApproved.Active())
	assert.False(t, RequestRejected.Active())
	assert.False(t, RequestExpired.Active())
}

func TestStatusJSON_rejectsUnknownValues(t *testing.T) {
	var rs RequestStatus
	require.NoError(t, json.Unmarshal([]byte("4"), &rs))
	assert.Equal(t, RequestExpired, rs)
	assert.Error(t, json.Unmarshal([]byte("5"), &rs))

	var ps ProductStatus
	assert.Error(t, json.Unmarshal([]byte("0"), &ps))

	var cs CompanyVerificationStatus
	require.NoError(t, json.Unmarshal([]byte("3"), &cs))
	assert.Equal(t, CompanyApproved, cs)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "UnderReview", CompanyUnderReview.String())
	assert.Equal(t, "Inactive", ProductInactive.String())
	assert.Equal(t, "RequestStatus(9)", RequestStatus(9).String())
}

func TestCompanyUpdate_legalIdentity(t *testing.T) {
	name := "Other Ltd"
	phone := "+90 555"
	assert.True(t, CompanyUpdate{Name: &name}.TouchesLegalIdentity())
	assert.False(t, CompanyUpdate{Phone: &phone}.TouchesLegalIdentity())
	assert.True(t, CompanyUpdate{}.Empty())
}

func TestEnvelope_errorTextPrefersErrors(t *testing.T) {
	env := Envelope{Message: "validation failed", Errors: []string{"message is required", "productId is required"}}
	assert.Equal(t, "message is required; productId is required", env.ErrorText())
	assert.Equal(t, "boom", Envelope{Message: "boom"}.ErrorText())
}

func TestNewErrorResponse_defaultCodes(t *testing.T) {
	assert.Equal(t, CodeAuthRequired, NewErrorResponse(401, "x").Code)
	assert.Equal(t, CodeStatusConflict, NewErrorResponse(409, "x").Code)
	assert.Equal(t, CodeInternal, NewErrorResponse(500, "x").Code)
}

func TestNewContactRequest_Validate(t *testing.T) {
	ok := NewContactRequest{ProductID: 42, Message: "Need 50 units, please quote", NDAAccepted: true}
	assert.Empty(t, ok.Validate())

	noNDA := ok
	noNDA.NDAAccepted = false
	assert.Contains(t, noNDA.Validate(), "the NDA must be accepted before contacting the seller")

	blank := ok
	blank.Message = "   "
	assert.Equal(t, []string{"message is required"}, blank.Validate())

	short := ok
	short.Message = "hi"
	assert.Len(t, short.Validate(), 1)
}

func TestValidateReason(t *testing.T) {
	assert.Empty(t, ValidateReason("", false))
	assert.NotEmpty(t, ValidateReason("  ", true))
	assert.Empty(t, ValidateReason("missing documents", true))
}

func TestCompanyRequest_Validate(t *testing.T) {
	req := CompanyRequest{Name: "Acme Ltd", TaxNumber: "1234567890", MersisNumber: "0123456789012345", Email: "info@acme.example"}
	assert.Empty(t, req.Validate())

	req.TaxNumber = "12AB"
	req.MersisNumber = "1"
	assert.Len(t, req.Validate(), 2)
}

func TestProductRequest_Validate(t *testing.T) {
	req := ProductRequest{Title: "Hydraulic pumps", Quantity: 50, UnitPrice: 320, Currency: "EUR"}
	assert.Empty(t, req.Validate())

	req.Quantity = 0
	req.Currency = "EURO"
	assert.Len(t, req.Validate(), 2)
}
