package dashboard

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/apiclient"
	"github.com/senyabanana/surplus-market/internal/auth"
	"github.com/senyabanana/surplus-market/internal/flow"
	"github.com/senyabanana/surplus-market/internal/handlers"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/notify"
	"github.com/senyabanana/surplus-market/internal/repository"
	"github.com/senyabanana/surplus-market/internal/router"
	"github.com/senyabanana/surplus-market/internal/services"
	"github.com/senyabanana/surplus-market/internal/session"
)

type market struct {
	url string
	jwt *auth.JWTService
}

func newMarket(t *testing.T) *market {
	t.Helper()
	store := repository.NewMemoryStore()
	m := metrics.Nop()
	jwtService := auth.NewJWTService("dashboard-test-secret", time.Hour)

	srv := httptest.NewServer(router.InitRoutes(router.Deps{
		Companies:       handlers.NewCompanyHandler(services.NewCompanyService(store, m), 2*time.Second),
		Products:        handlers.NewProductHandler(services.NewProductService(store, store, m), 2*time.Second),
		ContactRequests: handlers.NewContactRequestHandler(services.NewContactRequestService(store, store, store, m), 2*time.Second),
		Verifier:        jwtService,
		Metrics:         m,
		Logger:          zap.NewNop(),
	}))
	t.Cleanup(srv.Close)
	return &market{url: srv.URL, jwt: jwtService}
}

// as returns a signed-in session and a client acting for it.
func (mk *market) as(t *testing.T, companyID *int64, role models.UserRole) (*session.Session, *apiclient.Client) {
	t.Helper()
	token, err := mk.jwt.SignAccessToken(models.Identity{UserID: uuid.New(), CompanyID: companyID, Role: role})
	require.NoError(t, err)
	s := session.New(&session.MemoryStore{})
	require.NoError(t, s.Login(token))
	return s, apiclient.New(mk.url, s, apiclient.WithRetry(apiclient.RetryConfig{MaxAttempts: 1}))
}

func (mk *market) register(t *testing.T, name, tax, email string) int64 {
	t.Helper()
	_, c := mk.as(t, nil, models.RoleMember)
	company, err := c.RegisterCompany(context.Background(), models.CompanyRequest{
		Name: name, TaxNumber: tax, MersisNumber: tax + "000000", Phone: "+90 212 444 00 00", Email: email,
	})
	require.NoError(t, err)
	return company.ID
}

func TestVerificationQueueAndListings(t *testing.T) {
	ctx := context.Background()
	mk := newMarket(t)
	sellerID := mk.register(t, "Beta Motors", "9876543210", "contact@betamotors.example")

	_, sellerClient := mk.as(t, &sellerID, models.RoleMember)
	draft, err := sellerClient.CreateProduct(ctx, models.ProductRequest{Title: "Surplus alternators", Category: "automotive", Quantity: 200, UnitPrice: 85, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, models.ProductDraft, draft.Status)

	sellerNotices := &notify.Recorder{}
	listings := NewListings(sellerClient, sellerNotices)
	require.NoError(t, listings.Refresh(ctx))
	require.Len(t, listings.Items(), 1)

	_, err = listings.Publish(ctx, draft.ID)
	require.Error(t, err)
	assert.Equal(t, apiclient.KindVerificationRequired, apiclient.KindOf(err))
	last, _ := sellerNotices.Last()
	assert.Equal(t, notify.RemedyVerification, last.Remedy)
	assert.Equal(t, models.ProductDraft, listings.Items()[0].Status)

	_, adminClient := mk.as(t, nil, models.RoleAdmin)
	adminNotices := &notify.Recorder{}
	queue := NewVerificationQueue(adminClient, adminNotices)
	require.NoError(t, queue.Refresh(ctx))
	require.Len(t, queue.Items(), 1)

	_, err = queue.Reject(ctx, sellerID, "  ")
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
	require.Len(t, queue.Items(), 1)

	company, err := queue.Approve(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, models.CompanyApproved, company.VerificationStatus)
	assert.Empty(t, queue.Items())

	published, err := listings.Publish(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductActive, published.Status)
	assert.Equal(t, models.ProductActive, listings.Items()[0].Status)

	_, err = listings.MarkSold(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductSold, listings.Items()[0].Status)

	err = listings.Delete(ctx, draft.ID)
	assert.Equal(t, apiclient.KindConflict, apiclient.KindOf(err))
	assert.Len(t, listings.Items(), 1)
}

func TestRequestBoard_approveDisclosesToBuyer(t *testing.T) {
	ctx := context.Background()
	mk := newMarket(t)
	buyerID := mk.register(t, "Acme Ltd", "1234567890", "contact@acme.example")
	sellerID := mk.register(t, "Beta Motors", "9876543210", "contact@betamotors.example")

	_, adminClient := mk.as(t, nil, models.RoleAdmin)
	queue := NewVerificationQueue(adminClient, nil)
	require.NoError(t, queue.Refresh(ctx))
	for _, c := range queue.Items() {
		_, err := queue.Approve(ctx, c.ID)
		require.NoError(t, err)
	}

	_, sellerClient := mk.as(t, &sellerID, models.RoleMember)
	product, err := sellerClient.CreateProduct(ctx, models.ProductRequest{Title: "Surplus alternators", Category: "automotive", Quantity: 200, UnitPrice: 85, Currency: "EUR", Publish: true})
	require.NoError(t, err)

	buyerSession, buyerClient := mk.as(t, &buyerID, models.RoleMember)
	f := flow.New(product.ID, buyerClient, buyerSession, nil)
	_, err = f.Start()
	require.NoError(t, err)
	require.NoError(t, f.AcceptNDA())
	sent, err := f.Submit(ctx, "Need 50 units, please quote", "")
	require.NoError(t, err)
	assert.Nil(t, sent.SellerEmail)

	sellerNotices := &notify.Recorder{}
	board := NewRequestBoard(sellerClient, sellerNotices)
	require.NoError(t, board.Refresh(ctx))
	require.Len(t, board.Pending(), 1)

	approved, err := board.Approve(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Empty(t, board.Pending())

	seen, err := buyerClient.GetContactRequest(ctx, sent.ID)
	require.NoError(t, err)
	require.NotNil(t, seen.SellerEmail)
	assert.Equal(t, "contact@betamotors.example", *seen.SellerEmail)

	_, err = board.Reject(ctx, sent.ID, "too late")
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.AlreadyDecided())
	last, _ := sellerNotices.Last()
	assert.Equal(t, notify.RemedyRefresh, last.Remedy)
	assert.Equal(t, models.RequestApproved, board.Items()[0].Status)
}

type gatedReviews struct {
	gate    chan struct{}
	started chan struct{}
	err     error
	items   []models.ContactRequest
}

func (g *gatedReviews) ListContactRequests(context.Context, models.RequestRole) ([]models.ContactRequest, error) {
	return g.items, nil
}

func (g *gatedReviews) GetContactRequest(_ context.Context, id int64) (*models.ContactRequest, error) {
	return nil, errors.New("not used")
}

func (g *gatedReviews) ReviewContactRequest(_ context.Context, id int64, d models.ReviewDecision) (*models.ContactRequest, error) {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
	if g.err != nil {
		return nil, g.err
	}
	return &models.ContactRequest{ID: id, Status: models.RequestApproved}, nil
}

func TestRequestBoard_oneCallPerRow(t *testing.T) {
	api := &gatedReviews{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
		items:   []models.ContactRequest{{ID: 1, Status: models.RequestPending}, {ID: 2, Status: models.RequestPending}},
	}
	board := NewRequestBoard(api, nil)
	require.NoError(t, board.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := board.Approve(context.Background(), 1)
		done <- err
	}()
	<-api.started

	assert.True(t, board.InFlight(1))
	_, err := board.Reject(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, board.InFlight(2))

	close(api.gate)
	require.NoError(t, <-done)
	assert.False(t, board.InFlight(1))
	assert.Len(t, board.Pending(), 1)
}

func TestRequestBoard_failureLeavesCache(t *testing.T) {
	api := &gatedReviews{
		err:   &apiclient.Error{Kind: apiclient.KindTransient, Message: "the server could not be reached"},
		items: []models.ContactRequest{{ID: 1, Status: models.RequestPending}},
	}
	rec := &notify.Recorder{}
	board := NewRequestBoard(api, rec)
	require.NoError(t, board.Refresh(context.Background()))

	_, err := board.Approve(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, models.RequestPending, board.Items()[0].Status)
	last, _ := rec.Last()
	assert.Equal(t, notify.RemedyRetry, last.Remedy)

	_, err = board.Reject(context.Background(), 1, strings.Repeat("x", models.MaxReasonLength+1))
	assert.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
}
