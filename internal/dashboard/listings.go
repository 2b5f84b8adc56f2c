package dashboard

import (
	"context"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/notify"
)

type ListingAPI interface {
	MyProducts(ctx context.Context) ([]models.Product, error)
	PublishProduct(ctx context.Context, id int64) (*models.Product, error)
	UnpublishProduct(ctx context.Context, id int64) (*models.Product, error)
	MarkProductSold(ctx context.Context, id int64) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Listings is the seller's own product table.
type Listings struct {
	api      ListingAPI
	notifier notify.Notifier
	rows     *table[models.Product]
}

func NewListings(api ListingAPI, notifier notify.Notifier) *Listings {
	return &Listings{
		api:      api,
		notifier: notifier,
		rows:     newTable(func(p models.Product) int64 { return p.ID }),
	}
}

func (l *Listings) Refresh(ctx context.Context) error {
	return load(ctx, l.rows, l.notifier, l.api.MyProducts)
}

func (l *Listings) Items() []models.Product { return l.rows.snapshot() }

func (l *Listings) InFlight(id int64) bool { return l.rows.inFlight(id) }

// Publish fails with a verification_required error until the company is
// approved; the notice routes the user to verification.
func (l *Listings) Publish(ctx context.Context, id int64) (*models.Product, error) {
	return act(ctx, l.rows, l.notifier, id, "Listing published.", func(ctx context.Context) (*models.Product, error) {
		return l.api.PublishProduct(ctx, id)
	}, l.rows.replace)
}

func (l *Listings) Unpublish(ctx context.Context, id int64) (*models.Product, error) {
	return act(ctx, l.rows, l.notifier, id, "Listing unpublished.", func(ctx context.Context) (*models.Product, error) {
		return l.api.UnpublishProduct(ctx, id)
	}, l.rows.replace)
}

func (l *Listings) MarkSold(ctx context.Context, id int64) (*models.Product, error) {
	return act(ctx, l.rows, l.notifier, id, "Listing marked as sold.", func(ctx context.Context) (*models.Product, error) {
		return l.api.MarkProductSold(ctx, id)
	}, l.rows.replace)
}

func (l *Listings) Delete(ctx context.Context, id int64) error {
	_, err := act(ctx, l.rows, l.notifier, id, "Listing deleted.", func(ctx context.Context) (*models.Product, error) {
		if err := l.api.DeleteProduct(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}, nil)
	if err == nil {
		l.rows.remove(id)
	}
	return err
}
