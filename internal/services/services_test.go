package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/repository"
)

type fixture struct {
	store     *repository.MemoryStore
	metrics   *metrics.Metrics
	companies *CompanyService
	products  *ProductService
	requests  *ContactRequestService

	acme, beta, gamma *models.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	m := metrics.Nop()
	f := &fixture{
		store:     store,
		metrics:   m,
		companies: NewCompanyService(store, m),
		products:  NewProductService(store, store, m),
		requests:  NewContactRequestService(store, store, store, m),
	}
	f.acme = f.register(t, "Acme Ltd", "1111111111", "1111111111111111")
	f.beta = f.register(t, "Beta Motors", "2222222222", "2222222222222222")
	f.gamma = f.register(t, "Gamma Plastics", "3333333333", "3333333333333333")
	f.approve(t, f.acme.ID)
	f.approve(t, f.beta.ID)
	return f
}

func (f *fixture) register(t *testing.T, name, tax, mersis string) *models.Company {
	t.Helper()
	c, err := f.companies.Register(context.Background(), member(nil), models.CompanyRequest{
		Name:         name,
		TaxNumber:    tax,
		MersisNumber: mersis,
		Phone:        "+90 212 555 " + tax[:4],
		Email:        "sales@" + tax + ".example",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) approve(t *testing.T, id int64) {
	t.Helper()
	_, err := f.companies.Verify(context.Background(), admin(), id, models.VerificationDecision{Approve: true})
	require.NoError(t, err)
}

func (f *fixture) activeProduct(t *testing.T, seller *models.Company) *models.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), member(&seller.ID), models.ProductRequest{
		Title: "Surplus hydraulic pumps", Category: "Hydraulics", Quantity: 120, UnitPrice: 310, Currency: "eur", Publish: true,
	})
	require.NoError(t, err)
	return p
}

func member(companyID *int64) models.Identity {
	return models.Identity{UserID: uuid.New(), CompanyID: companyID, Role: models.RoleMember}
}

func admin() models.Identity {
	return models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	var errResp *models.ErrorResponse
	require.True(t, errors.As(err, &errResp), "expected ErrorResponse, got %v", err)
	assert.Equal(t, status, errResp.StatusCode)
	assert.Equal(t, code, errResp.Code)
}

func newRequest(productID int64) models.NewContactRequest {
	return models.NewContactRequest{ProductID: productID, Message: "Need 50 units, please quote", NDAAccepted: true}
}

func TestContactRequest_disclosureFollowsApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)
	buyer := member(&f.acme.ID)
	seller := member(&f.beta.ID)

	cr, err := f.requests.Create(ctx, buyer, newRequest(product.ID))
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, cr.Status)
	assert.True(t, cr.NDAAccepted)
	assert.Nil(t, cr.SellerEmail)

	got, err := f.requests.Get(ctx, buyer, cr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SellerEmail)

	reviewed, err := f.requests.Review(ctx, seller, cr.ID, models.ReviewDecision{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, reviewed.Status)
	assert.Nil(t, reviewed.SellerEmail)

	got, err = f.requests.Get(ctx, buyer, cr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SellerEmail)
	assert.Equal(t, "Beta Motors", *got.SellerCompanyName)
	assert.Equal(t, f.beta.Email, *got.SellerEmail)
	assert.Equal(t, f.beta.Phone, *got.SellerPhone)

	sent, err := f.requests.List(ctx, buyer, models.RoleSent, "", "")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.NotNil(t, sent[0].SellerEmail)

	received, err := f.requests.List(ctx, seller, models.RoleReceived, "", "")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Nil(t, received[0].SellerEmail)
}

func TestContactRequest_rejectedNeverDiscloses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)
	buyer := member(&f.acme.ID)

	cr, err := f.requests.Create(ctx, buyer, newRequest(product.ID))
	require.NoError(t, err)

	rejected, err := f.requests.Review(ctx, member(&f.beta.ID), cr.ID, models.ReviewDecision{RejectionReason: "stock already reserved"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "stock already reserved", *rejected.RejectionReason)

	got, err := f.requests.Get(ctx, buyer, cr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SellerEmail)
}

func TestContactRequest_terminalStatusConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)
	seller := member(&f.beta.ID)

	cr, err := f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
	require.NoError(t, err)
	_, err = f.requests.Review(ctx, seller, cr.ID, models.ReviewDecision{Approve: true})
	require.NoError(t, err)

	for _, decision := range []models.ReviewDecision{{Approve: true}, {Approve: false}} {
		_, err = f.requests.Review(ctx, seller, cr.ID, decision)
		requireCode(t, err, http.StatusConflict, models.CodeAlreadyDecided)
	}

	stored, err := f.store.GetContactRequest(ctx, cr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stored.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ContactRequestReviews.WithLabelValues("approved")))
}

func TestContactRequest_concurrentReviewsApplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)
	seller := member(&f.beta.ID)

	cr, err := f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			if _, err := f.requests.Review(ctx, seller, cr.ID, models.ReviewDecision{Approve: approve}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestContactRequest_createGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)

	t.Run("nda required", func(t *testing.T) {
		req := newRequest(product.ID)
		req.NDAAccepted = false
		_, err := f.requests.Create(ctx, member(&f.acme.ID), req)
		requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)
	})

	t.Run("no company", func(t *testing.T) {
		_, err := f.requests.Create(ctx, member(nil), newRequest(product.ID))
		requireCode(t, err, http.StatusForbidden, models.CodeForbidden)
	})

	t.Run("unverified buyer", func(t *testing.T) {
		_, err := f.requests.Create(ctx, member(&f.gamma.ID), newRequest(product.ID))
		requireCode(t, err, http.StatusForbidden, models.CodeVerificationRequired)
	})

	t.Run("own product", func(t *testing.T) {
		_, err := f.requests.Create(ctx, member(&f.beta.ID), newRequest(product.ID))
		requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)
	})

	t.Run("inactive product", func(t *testing.T) {
		draft, err := f.products.Create(ctx, member(&f.beta.ID), models.ProductRequest{Title: "Copper wire", Quantity: 3, Currency: "TRY"})
		require.NoError(t, err)
		_, err = f.requests.Create(ctx, member(&f.acme.ID), newRequest(draft.ID))
		requireCode(t, err, http.StatusConflict, models.CodeStatusConflict)
	})

	t.Run("one active request per product", func(t *testing.T) {
		_, err := f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
		require.NoError(t, err)
		_, err = f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
		requireCode(t, err, http.StatusConflict, models.CodeDuplicateRequest)
	})
}

func TestContactRequest_accessScopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)

	cr, err := f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
	require.NoError(t, err)

	_, err = f.requests.Review(ctx, member(&f.acme.ID), cr.ID, models.ReviewDecision{Approve: true})
	requireCode(t, err, http.StatusForbidden, models.CodeForbidden)

	_, err = f.requests.Get(ctx, member(&f.gamma.ID), cr.ID)
	requireCode(t, err, http.StatusNotFound, models.CodeNotFound)

	_, err = f.requests.List(ctx, member(&f.acme.ID), models.RequestRole("all"), "", "")
	requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)
}

func TestCompany_verificationWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.companies.Verify(ctx, member(&f.acme.ID), f.gamma.ID, models.VerificationDecision{Approve: true})
	requireCode(t, err, http.StatusForbidden, models.CodeForbidden)

	_, err = f.companies.Verify(ctx, admin(), f.gamma.ID, models.VerificationDecision{Approve: false})
	requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)

	rejected, err := f.companies.Verify(ctx, admin(), f.gamma.ID, models.VerificationDecision{RejectionReason: "tax certificate expired"})
	require.NoError(t, err)
	assert.Equal(t, models.CompanyRejected, rejected.VerificationStatus)

	_, err = f.companies.Verify(ctx, admin(), f.gamma.ID, models.VerificationDecision{Approve: true})
	requireCode(t, err, http.StatusConflict, models.CodeAlreadyDecided)

	owner := member(&f.gamma.ID)
	name := "Gamma Holdings"
	_, err = f.companies.Update(ctx, owner, f.gamma.ID, models.CompanyUpdate{Name: &name})
	requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)

	phone := "+90 216 111 2233"
	resubmitted, err := f.companies.Update(ctx, owner, f.gamma.ID, models.CompanyUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, models.CompanyUnderReview, resubmitted.VerificationStatus)
	assert.Equal(t, "Gamma Plastics", resubmitted.Name)

	queue, err := f.companies.List(ctx, admin(), []string{"2"}, "", "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, f.gamma.ID, queue[0].ID)

	approved, err := f.companies.Verify(ctx, admin(), f.gamma.ID, models.VerificationDecision{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.CompanyApproved, approved.VerificationStatus)
	assert.Nil(t, approved.RejectionReason)

	_, err = f.companies.List(ctx, admin(), []string{"9"}, "", "")
	requireCode(t, err, http.StatusBadRequest, models.CodeValidationFailed)
}

func TestCompany_profileIsPrivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.companies.Get(ctx, member(&f.acme.ID), f.beta.ID)
	requireCode(t, err, http.StatusForbidden, models.CodeForbidden)

	own, err := f.companies.Get(ctx, member(&f.beta.ID), f.beta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta Motors", own.Name)

	_, err = f.companies.Register(ctx, member(&f.beta.ID), models.CompanyRequest{})
	requireCode(t, err, http.StatusConflict, models.CodeStatusConflict)

	_, err = f.companies.Register(ctx, member(nil), models.CompanyRequest{Name: "Copycat", TaxNumber: "1111111111", MersisNumber: "9999999999999999"})
	requireCode(t, err, http.StatusConflict, models.CodeStatusConflict)
}

func TestProduct_publishRequiresVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := member(&f.gamma.ID)

	draft, err := f.products.Create(ctx, owner, models.ProductRequest{Title: "PVC granules", Quantity: 10, UnitPrice: 2.5, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, models.ProductDraft, draft.Status)

	_, err = f.products.Publish(ctx, owner, draft.ID)
	requireCode(t, err, http.StatusForbidden, models.CodeVerificationRequired)

	_, err = f.products.Create(ctx, owner, models.ProductRequest{Title: "PVC granules", Quantity: 10, Currency: "USD", Publish: true})
	requireCode(t, err, http.StatusForbidden, models.CodeVerificationRequired)

	stored, err := f.store.GetProduct(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductDraft, stored.Status)

	f.approve(t, f.gamma.ID)
	published, err := f.products.Publish(ctx, owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductActive, published.Status)
}

func TestProduct_lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := member(&f.beta.ID)
	product := f.activeProduct(t, f.beta)
	assert.Equal(t, "hydraulics", product.Category)
	assert.Equal(t, "EUR", product.Currency)

	_, err := f.products.Unpublish(ctx, member(&f.acme.ID), product.ID)
	requireCode(t, err, http.StatusForbidden, models.CodeForbidden)

	_, err = f.products.Publish(ctx, owner, product.ID)
	requireCode(t, err, http.StatusConflict, models.CodeStatusConflict)

	inactive, err := f.products.Unpublish(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductInactive, inactive.Status)

	catalog, err := f.products.ListActive(ctx, nil, nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, catalog)

	_, err = f.products.Get(ctx, member(&f.acme.ID), product.ID)
	requireCode(t, err, http.StatusNotFound, models.CodeNotFound)
	_, err = f.products.Get(ctx, owner, product.ID)
	require.NoError(t, err)

	_, err = f.products.Publish(ctx, owner, product.ID)
	require.NoError(t, err)
	catalog, err = f.products.ListActive(ctx, []string{"HYDRAULICS"}, []string{"eur"}, "", "")
	require.NoError(t, err)
	assert.Len(t, catalog, 1)

	sold, err := f.products.MarkSold(ctx, owner, product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductSold, sold.Status)

	err = f.products.Delete(ctx, owner, product.ID)
	requireCode(t, err, http.StatusConflict, models.CodeStatusConflict)

	draft, err := f.products.Create(ctx, owner, models.ProductRequest{Title: "Spare gears", Quantity: 7, Currency: "TRY"})
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, owner, draft.ID))

	mine, err := f.products.ListMine(ctx, owner, "", "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ProductTransitions.WithLabelValues(ActionDelete, "ok")))
}

func TestSourcesOf(t *testing.T) {
	assert.ElementsMatch(t, []models.ProductStatus{models.ProductDraft, models.ProductInactive}, sourcesOf(models.ProductActive))
	assert.ElementsMatch(t, []models.ProductStatus{models.ProductActive}, sourcesOf(models.ProductSold))
	assert.Empty(t, sourcesOf(models.ProductDraft))
}

func TestExpirySweeper(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	product := f.activeProduct(t, f.beta)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return start })
	cr, err := f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
	require.NoError(t, err)

	sweeper := NewExpirySweeper(f.store, 30*24*time.Hour, time.Hour, f.metrics, zap.NewNop())
	sweeper.now = func() time.Time { return start.Add(29 * 24 * time.Hour) }
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	sweeper.now = func() time.Time { return start.Add(31 * 24 * time.Hour) }
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ContactRequestsExpired))

	_, err = f.requests.Review(ctx, member(&f.beta.ID), cr.ID, models.ReviewDecision{Approve: true})
	requireCode(t, err, http.StatusConflict, models.CodeAlreadyDecided)

	// An expired request frees the slot for a new one.
	_, err = f.requests.Create(ctx, member(&f.acme.ID), newRequest(product.ID))
	require.NoError(t, err)
}

func TestExpirySweeper_runStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	sweeper := NewExpirySweeper(f.store, time.Hour, time.Millisecond, f.metrics, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
