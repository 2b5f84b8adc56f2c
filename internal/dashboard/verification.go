package dashboard

import (
	"context"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/notify"
)

type VerificationAPI interface {
	ListCompanies(ctx context.Context, statuses ...models.CompanyVerificationStatus) ([]models.Company, error)
	VerifyCompany(ctx context.Context, id int64, decision models.VerificationDecision) (*models.Company, error)
}

// VerificationQueue is the admin view of companies awaiting review.
type VerificationQueue struct {
	api      VerificationAPI
	notifier notify.Notifier
	rows     *table[models.Company]
}

func NewVerificationQueue(api VerificationAPI, notifier notify.Notifier) *VerificationQueue {
	return &VerificationQueue{
		api:      api,
		notifier: notifier,
		rows:     newTable(func(c models.Company) int64 { return c.ID }),
	}
}

func (q *VerificationQueue) Refresh(ctx context.Context) error {
	return load(ctx, q.rows, q.notifier, func(ctx context.Context) ([]models.Company, error) {
		return q.api.ListCompanies(ctx, models.CompanyPending, models.CompanyUnderReview)
	})
}

func (q *VerificationQueue) Items() []models.Company { return q.rows.snapshot() }

func (q *VerificationQueue) InFlight(id int64) bool { return q.rows.inFlight(id) }

func (q *VerificationQueue) Approve(ctx context.Context, id int64) (*models.Company, error) {
	return q.decide(ctx, id, models.VerificationDecision{Approve: true}, "Company approved.")
}

// Reject requires a reason so the company knows what to fix.
func (q *VerificationQueue) Reject(ctx context.Context, id int64, reason string) (*models.Company, error) {
	if problems := models.ValidateReason(reason, true); len(problems) > 0 {
		return nil, invalid(q.notifier, problems)
	}
	return q.decide(ctx, id, models.VerificationDecision{RejectionReason: reason}, "Company rejected.")
}

func (q *VerificationQueue) decide(ctx context.Context, id int64, decision models.VerificationDecision, success string) (*models.Company, error) {
	return act(ctx, q.rows, q.notifier, id, success, func(ctx context.Context) (*models.Company, error) {
		return q.api.VerifyCompany(ctx, id, decision)
	}, func(c models.Company) {
		if c.VerificationStatus.Reviewable() {
			q.rows.replace(c)
			return
		}
		q.rows.remove(c.ID)
	})
}
