package dashboard

import (
	"context"
	"errors"

	"github.com/senyabanana/surplus-market/internal/apiclient"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/notify"
)

// RequestAPI is the part of apiclient.Client a seller's board uses.
type RequestAPI interface {
	ListContactRequests(ctx context.Context, role models.RequestRole) ([]models.ContactRequest, error)
	GetContactRequest(ctx context.Context, id int64) (*models.ContactRequest, error)
	ReviewContactRequest(ctx context.Context, id int64, decision models.ReviewDecision) (*models.ContactRequest, error)
}

// RequestBoard lists the contact requests a seller received and reviews them.
type RequestBoard struct {
	api      RequestAPI
	notifier notify.Notifier
	rows     *table[models.ContactRequest]
}

func NewRequestBoard(api RequestAPI, notifier notify.Notifier) *RequestBoard {
	return &RequestBoard{
		api:      api,
		notifier: notifier,
		rows:     newTable(func(r models.ContactRequest) int64 { return r.ID }),
	}
}

func (b *RequestBoard) Refresh(ctx context.Context) error {
	return load(ctx, b.rows, b.notifier, func(ctx context.Context) ([]models.ContactRequest, error) {
		return b.api.ListContactRequests(ctx, models.RoleReceived)
	})
}

func (b *RequestBoard) Items() []models.ContactRequest { return b.rows.snapshot() }

// Pending returns the rows still awaiting a decision.
func (b *RequestBoard) Pending() []models.ContactRequest {
	var out []models.ContactRequest
	for _, r := range b.rows.snapshot() {
		if r.Status == models.RequestPending {
			out = append(out, r)
		}
	}
	return out
}

// InFlight reports whether a review of id is outstanding.
func (b *RequestBoard) InFlight(id int64) bool { return b.rows.inFlight(id) }

func (b *RequestBoard) Approve(ctx context.Context, id int64) (*models.ContactRequest, error) {
	return b.review(ctx, id, models.ReviewDecision{Approve: true}, "Request approved. The buyer can now see your contact details.")
}

// Reject declines the request; reason is optional.
func (b *RequestBoard) Reject(ctx context.Context, id int64, reason string) (*models.ContactRequest, error) {
	if problems := models.ValidateReason(reason, false); len(problems) > 0 {
		return nil, invalid(b.notifier, problems)
	}
	return b.review(ctx, id, models.ReviewDecision{RejectionReason: reason}, "Request rejected.")
}

func (b *RequestBoard) review(ctx context.Context, id int64, decision models.ReviewDecision, success string) (*models.ContactRequest, error) {
	cr, err := act(ctx, b.rows, b.notifier, id, success, func(ctx context.Context) (*models.ContactRequest, error) {
		return b.api.ReviewContactRequest(ctx, id, decision)
	}, b.rows.replace)

	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.AlreadyDecided() {
		// Someone else decided first; show what the server holds now.
		if current, getErr := b.api.GetContactRequest(ctx, id); getErr == nil {
			b.rows.replace(*current)
		}
	}
	return cr, err
}
