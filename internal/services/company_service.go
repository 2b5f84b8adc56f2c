package services

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/repository"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// reviewableCompany lists the states an admin decision may start from.
var reviewableCompany = []models.CompanyVerificationStatus{models.CompanyPending, models.CompanyUnderReview}

type CompanyService struct {
	Repo    repository.CompanyRepository
	Metrics *metrics.Metrics
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(repo repository.CompanyRepository, m *metrics.Metrics) *CompanyService {
	return &CompanyService{Repo: repo, Metrics: m}
}

// Register creates a company in the Pending state.
func (s *CompanyService) Register(ctx context.Context, caller models.Identity, req models.CompanyRequest) (*models.Company, error) {
	if _, ok := caller.Company(); ok {
		return nil, models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, "you already belong to a company")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.TaxNumber = strings.TrimSpace(req.TaxNumber)
	req.MersisNumber = strings.TrimSpace(req.MersisNumber)
	if problems := req.Validate(); len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	company, err := s.Repo.CreateCompany(ctx, req)
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}
	logger.FromContext(ctx).Info("company registered", zap.Int64("company_id", company.ID))
	return company, nil
}

// Get returns a company profile to its members or to an admin. Profiles hold
// contact details, so other companies cannot read them.
func (s *CompanyService) Get(ctx context.Context, caller models.Identity, id int64) (*models.Company, error) {
	if !caller.Owns(id) && !caller.IsAdmin() {
		return nil, models.NewErrorResponse(http.StatusForbidden, "you are not allowed to view this company")
	}
	company, err := s.Repo.GetCompany(ctx, id)
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}
	return company, nil
}

// List returns companies for the admin queue, filtered by status numbers.
func (s *CompanyService) List(ctx context.Context, caller models.Identity, statusParams []string, limitStr, offsetStr string) ([]models.Company, error) {
	if !caller.IsAdmin() {
		return nil, models.NewErrorResponse(http.StatusForbidden, "admin role required")
	}

	var statuses []models.CompanyVerificationStatus
	for _, raw := range statusParams {
		n, err := strconv.Atoi(raw)
		status := models.CompanyVerificationStatus(n)
		if err != nil || !status.Valid() {
			return nil, models.NewValidationError("unsupported verification status: " + raw)
		}
		if !utils.Contains(statuses, status) {
			statuses = append(statuses, status)
		}
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	companies, err := s.Repo.ListCompanies(ctx, statuses, limit, offset)
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}
	return companies, nil
}

// Update edits address, phone or email. Legal identity fields are immutable; a
// rejected company that edits its profile goes back to UnderReview.
func (s *CompanyService) Update(ctx context.Context, caller models.Identity, id int64, upd models.CompanyUpdate) (*models.Company, error) {
	if !caller.Owns(id) {
		return nil, models.NewErrorResponse(http.StatusForbidden, "you can only edit your own company")
	}
	if problems := upd.Validate(); len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	company, err := s.Repo.UpdateCompanyProfile(ctx, id, upd)
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}
	logger.FromContext(ctx).Info("company profile updated",
		zap.Int64("company_id", id),
		zap.Stringer("verification_status", company.VerificationStatus))
	return company, nil
}

// Verify records an admin decision. Rejection requires a reason.
func (s *CompanyService) Verify(ctx context.Context, caller models.Identity, id int64, decision models.VerificationDecision) (*models.Company, error) {
	if !caller.IsAdmin() {
		return nil, models.NewErrorResponse(http.StatusForbidden, "admin role required")
	}

	reason := strings.TrimSpace(decision.RejectionReason)
	to := models.CompanyApproved
	var storedReason *string
	if !decision.Approve {
		if problems := models.ValidateReason(reason, true); len(problems) > 0 {
			return nil, models.NewValidationError(problems...)
		}
		to = models.CompanyRejected
		storedReason = &reason
	}

	company, err := s.Repo.SetVerification(ctx, id, reviewableCompany, to, storedReason)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, models.NewCodedError(http.StatusConflict, models.CodeAlreadyDecided, "company verification has already been decided")
	}
	if err != nil {
		return nil, fromRepo(ctx, err, "company")
	}

	s.Metrics.ObserveVerification(decision.Approve)
	logger.FromContext(ctx).Info("company verification decided",
		zap.Int64("company_id", id),
		zap.Stringer("verification_status", company.VerificationStatus))
	return company, nil
}
