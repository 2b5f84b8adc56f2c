package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/repository"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// ContactRequestService creates contact requests and records seller decisions.
// Every request leaving the service is masked for the caller.
type ContactRequestService struct {
	Requests  repository.ContactRequestRepository
	Products  repository.ProductRepository
	Companies repository.CompanyRepository
	Metrics   *metrics.Metrics
	now       func() time.Time
}

// NewContactRequestService creates a new ContactRequestService.
func NewContactRequestService(requests repository.ContactRequestRepository, products repository.ProductRepository, companies repository.CompanyRepository, m *metrics.Metrics) *ContactRequestService {
	return &ContactRequestService{
		Requests:  requests,
		Products:  products,
		Companies: companies,
		Metrics:   m,
		now:       time.Now,
	}
}

// Create submits a buyer's request for an Active product. The buyer company must
// be verified, must have accepted the NDA and must not already hold an active
// request for the same product.
func (s *ContactRequestService) Create(ctx context.Context, caller models.Identity, req models.NewContactRequest) (*models.ContactRequest, error) {
	cr, err := s.create(ctx, caller, req)
	s.Metrics.ObserveCreate(err)
	return cr, err
}

func (s *ContactRequestService) create(ctx context.Context, caller models.Identity, req models.NewContactRequest) (*models.ContactRequest, error) {
	buyerID, err := requireCompany(caller)
	if err != nil {
		return nil, err
	}
	if problems := req.Validate(); len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.ContactPhone != nil {
		phone := strings.TrimSpace(*req.ContactPhone)
		if phone == "" {
			req.ContactPhone = nil
		} else {
			req.ContactPhone = &phone
		}
	}

	buyer, err := s.Companies.GetCompany(ctx, buyerID)
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}
	if err := requireApproved(buyer, "contact sellers"); err != nil {
		return nil, err
	}

	product, err := s.Products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	if !product.Status.VisibleToBuyers() {
		return nil, models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, "product is not accepting contact requests")
	}
	if product.SellerCompanyID == buyerID {
		return nil, models.NewValidationError("you cannot send a contact request for your own product")
	}

	active, err := s.Requests.HasActiveRequest(ctx, product.ID, buyerID)
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}
	if active {
		return nil, fromRepo(ctx, repository.ErrDuplicateActive, "contact request")
	}

	cr, err := s.Requests.CreateContactRequest(ctx, buyerID, product.SellerCompanyID, req)
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}

	logger.FromContext(ctx).Info("contact request created",
		zap.Int64("contact_request_id", cr.ID),
		zap.Int64("product_id", cr.ProductID),
		zap.Int64("buyer_company_id", buyerID))

	view := cr.BuyerView()
	return &view, nil
}

// Review approves or rejects a Pending request on behalf of the seller company.
// A request that is no longer Pending fails with already_decided and is left unchanged.
func (s *ContactRequestService) Review(ctx context.Context, caller models.Identity, id int64, decision models.ReviewDecision) (*models.ContactRequest, error) {
	sellerID, err := requireCompany(caller)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(decision.RejectionReason)
	if problems := models.ValidateReason(reason, false); len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	current, err := s.Requests.GetContactRequest(ctx, id)
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}
	if current.SellerCompanyID != sellerID {
		return nil, models.NewCodedError(http.StatusForbidden, models.CodeForbidden, "only the seller company can review this request")
	}
	if current.Status.Terminal() {
		return nil, alreadyDecided(current.Status)
	}

	to := models.RequestRejected
	var storedReason *string
	if decision.Approve {
		to = models.RequestApproved
	} else if reason != "" {
		storedReason = &reason
	}

	updated, err := s.Requests.ReviewContactRequest(ctx, id, to, storedReason, s.now())
	if errors.Is(err, repository.ErrStatusConflict) {
		// Lost a race with another reviewer or the expiry sweeper.
		if latest, getErr := s.Requests.GetContactRequest(ctx, id); getErr == nil {
			return nil, alreadyDecided(latest.Status)
		}
		return nil, alreadyDecided(models.RequestPending)
	}
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}

	s.Metrics.ObserveReview(decision.Approve)
	logger.FromContext(ctx).Info("contact request reviewed",
		zap.Int64("contact_request_id", id),
		zap.Stringer("status", updated.Status))

	view := updated.SellerView()
	return &view, nil
}

func alreadyDecided(status models.RequestStatus) error {
	msg := "contact request has already been decided"
	if status.Terminal() {
		msg += " (" + strings.ToLower(status.String()) + ")"
	}
	return models.NewCodedError(http.StatusConflict, models.CodeAlreadyDecided, msg)
}

// Get returns one request as seen by the caller's side of the exchange.
func (s *ContactRequestService) Get(ctx context.Context, caller models.Identity, id int64) (*models.ContactRequest, error) {
	cr, err := s.Requests.GetContactRequest(ctx, id)
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}

	companyID, hasCompany := caller.Company()
	isParty := hasCompany && (companyID == cr.BuyerCompanyID || companyID == cr.SellerCompanyID)
	if !isParty && !caller.IsAdmin() {
		return nil, models.NewErrorResponse(http.StatusNotFound, "contact request not found")
	}

	view := cr.ViewFor(companyID)
	return &view, nil
}

// List returns the caller company's received or sent requests.
func (s *ContactRequestService) List(ctx context.Context, caller models.Identity, role models.RequestRole, limitStr, offsetStr string) ([]models.ContactRequest, error) {
	companyID, err := requireCompany(caller)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleReceived
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be one of: received, sent")
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	requests, err := s.Requests.ListContactRequests(ctx, companyID, role, limit, offset)
	if err != nil {
		return nil, fromRepo(ctx, err, "contact request")
	}

	views := make([]models.ContactRequest, 0, len(requests))
	for _, cr := range requests {
		views = append(views, cr.ViewFor(companyID))
	}
	return views, nil
}
