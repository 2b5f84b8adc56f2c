package services

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/repository"
)

var errInternal = models.NewErrorResponse(http.StatusInternalServerError, "internal server error")

// requireCompany returns the caller's company id or a forbidden error for
// callers that have not registered a company yet.
func requireCompany(caller models.Identity) (int64, error) {
	id, ok := caller.Company()
	if !ok {
		return 0, models.NewCodedError(http.StatusForbidden, models.CodeForbidden, "register a company to continue")
	}
	return id, nil
}

// requireApproved refuses companies that are not verified.
func requireApproved(company *models.Company, action string) error {
	switch company.VerificationStatus {
	case models.CompanyApproved:
		return nil
	case models.CompanyPending, models.CompanyUnderReview, models.CompanyRejected:
		return models.NewCodedError(http.StatusForbidden, models.CodeVerificationRequired,
			"company verification is required to "+action)
	default:
		return models.NewCodedError(http.StatusForbidden, models.CodeVerificationRequired,
			"company verification is required to "+action)
	}
}

// fromRepo maps repository errors to responses. Unknown errors are logged and
// hidden behind a generic 500.
func fromRepo(ctx context.Context, err error, subject string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.NewErrorResponse(http.StatusNotFound, subject+" not found")
	case errors.Is(err, repository.ErrStatusConflict):
		return models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, subject+" status does not allow this change")
	case errors.Is(err, repository.ErrDuplicateActive):
		return models.NewCodedError(http.StatusConflict, models.CodeDuplicateRequest, "you already have an active contact request for this product")
	case errors.Is(err, repository.ErrDuplicateCompany):
		return models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, "a company with this tax or MERSIS number is already registered")
	default:
		logger.FromContext(ctx).Error("repository call failed", zap.String("subject", subject), zap.Error(err))
		return errInternal
	}
}
