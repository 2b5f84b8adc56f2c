package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// MemoryStore keeps companies, products and contact requests in process memory.
// It implements every repository interface with the same conflict rules as the
// PostgreSQL implementation and is used for local runs and tests.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	companies map[int64]models.Company
	products  map[int64]models.Product
	deleted   map[int64]bool
	requests  map[int64]models.ContactRequest

	nextCompany int64
	nextProduct int64
	nextRequest int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		companies: make(map[int64]models.Company),
		products:  make(map[int64]models.Product),
		deleted:   make(map[int64]bool),
		requests:  make(map[int64]models.ContactRequest),
	}
}

// SetClock replaces the store clock.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// companies

func (m *MemoryStore) CreateCompany(_ context.Context, req models.CompanyRequest) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.companies {
		if c.TaxNumber == req.TaxNumber || c.MersisNumber == req.MersisNumber {
			return nil, ErrDuplicateCompany
		}
	}
	m.nextCompany++
	now := m.now()
	c := models.Company{
		ID:                 m.nextCompany,
		Name:               req.Name,
		TaxNumber:          req.TaxNumber,
		MersisNumber:       req.MersisNumber,
		Address:            req.Address,
		Phone:              req.Phone,
		Email:              req.Email,
		VerificationStatus: models.CompanyPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.companies[c.ID] = c
	return &c, nil
}

func (m *MemoryStore) GetCompany(_ context.Context, id int64) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.RejectionReason = cloneString(c.RejectionReason)
	return &c, nil
}

func (m *MemoryStore) ListCompanies(_ context.Context, statuses []models.CompanyVerificationStatus, limit, offset int) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Company
	for _, c := range m.companies {
		if len(statuses) > 0 && !utils.Contains(statuses, c.VerificationStatus) {
			continue
		}
		c.RejectionReason = cloneString(c.RejectionReason)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (m *MemoryStore) UpdateCompanyProfile(_ context.Context, id int64, upd models.CompanyUpdate) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Empty() {
		return &c, nil
	}
	if upd.Address != nil {
		c.Address = *upd.Address
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if upd.Email != nil {
		c.Email = *upd.Email
	}
	if c.VerificationStatus == models.CompanyRejected {
		c.VerificationStatus = models.CompanyUnderReview
	}
	c.UpdatedAt = m.now()
	m.companies[id] = c
	return &c, nil
}

func (m *MemoryStore) SetVerification(_ context.Context, id int64, from []models.CompanyVerificationStatus, to models.CompanyVerificationStatus, reason *string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !utils.Contains(from, c.VerificationStatus) {
		return nil, ErrStatusConflict
	}
	c.VerificationStatus = to
	c.RejectionReason = cloneString(reason)
	c.UpdatedAt = m.now()
	m.companies[id] = c
	return &c, nil
}

// products

func (m *MemoryStore) CreateProduct(_ context.Context, sellerCompanyID int64, req models.ProductRequest, status models.ProductStatus) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProduct++
	now := m.now()
	p := models.Product{
		ID:              m.nextProduct,
		SellerCompanyID: sellerCompanyID,
		Title:           req.Title,
		Category:        req.Category,
		Status:          status,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		Currency:        req.Currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.products[p.ID] = p
	return &p, nil
}

func (m *MemoryStore) getProduct(id int64) (models.Product, error) {
	p, ok := m.products[id]
	if !ok || m.deleted[id] {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.getProduct(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// newestFirst orders listings the way the SQL queries do.
func newestFirst(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID > products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

func (m *MemoryStore) ListActiveProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Product
	for id, p := range m.products {
		if m.deleted[id] || p.Status != models.ProductActive {
			continue
		}
		if len(filter.Categories) > 0 && !utils.Contains(filter.Categories, p.Category) {
			continue
		}
		if len(filter.Currencies) > 0 && !utils.Contains(filter.Currencies, p.Currency) {
			continue
		}
		out = append(out, p)
	}
	newestFirst(out)
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *MemoryStore) ListCompanyProducts(_ context.Context, sellerCompanyID int64, limit, offset int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Product
	for id, p := range m.products {
		if m.deleted[id] || p.SellerCompanyID != sellerCompanyID {
			continue
		}
		out = append(out, p)
	}
	newestFirst(out)
	return page(out, limit, offset), nil
}

func (m *MemoryStore) UpdateProductStatus(_ context.Context, id int64, from []models.ProductStatus, to models.ProductStatus) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.getProduct(id)
	if err != nil {
		return nil, err
	}
	if !utils.Contains(from, p.Status) {
		return nil, ErrStatusConflict
	}
	p.Status = to
	p.UpdatedAt = m.now()
	m.products[id] = p
	return &p, nil
}

func (m *MemoryStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.getProduct(id)
	if err != nil {
		return err
	}
	if p.Status == models.ProductSold {
		return ErrStatusConflict
	}
	m.deleted[id] = true
	return nil
}

// contact requests

func (m *MemoryStore) withSellerContact(cr models.ContactRequest) models.ContactRequest {
	cr.ContactPhone = cloneString(cr.ContactPhone)
	cr.RejectionReason = cloneString(cr.RejectionReason)
	if cr.ReviewedAt != nil {
		at := *cr.ReviewedAt
		cr.ReviewedAt = &at
	}
	if seller, ok := m.companies[cr.SellerCompanyID]; ok {
		cr.SetSellerContact(models.SellerContact{Phone: seller.Phone, Email: seller.Email, CompanyName: seller.Name})
	}
	return cr
}

func (m *MemoryStore) CreateContactRequest(_ context.Context, buyerCompanyID, sellerCompanyID int64, req models.NewContactRequest) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasActive(req.ProductID, buyerCompanyID) {
		return nil, ErrDuplicateActive
	}
	m.nextRequest++
	cr := models.ContactRequest{
		ID:              m.nextRequest,
		ProductID:       req.ProductID,
		BuyerCompanyID:  buyerCompanyID,
		SellerCompanyID: sellerCompanyID,
		Message:         req.Message,
		ContactPhone:    cloneString(req.ContactPhone),
		NDAAccepted:     req.NDAAccepted,
		Status:          models.RequestPending,
		CreatedAt:       m.now(),
	}
	m.requests[cr.ID] = cr
	out := m.withSellerContact(cr)
	return &out, nil
}

func (m *MemoryStore) GetContactRequest(_ context.Context, id int64) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cr, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.withSellerContact(cr)
	return &out, nil
}

func (m *MemoryStore) hasActive(productID, buyerCompanyID int64) bool {
	for _, cr := range m.requests {
		if cr.ProductID == productID && cr.BuyerCompanyID == buyerCompanyID && cr.Status.Active() {
			return true
		}
	}
	return false
}

func (m *MemoryStore) HasActiveRequest(_ context.Context, productID, buyerCompanyID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActive(productID, buyerCompanyID), nil
}

func (m *MemoryStore) ListContactRequests(_ context.Context, companyID int64, role models.RequestRole, limit, offset int) ([]models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ContactRequest
	for _, cr := range m.requests {
		var match bool
		switch role {
		case models.RoleReceived:
			match = cr.SellerCompanyID == companyID
		case models.RoleSent:
			match = cr.BuyerCompanyID == companyID
		}
		if match {
			out = append(out, m.withSellerContact(cr))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (m *MemoryStore) ReviewContactRequest(_ context.Context, id int64, to models.RequestStatus, reason *string, at time.Time) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cr, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if cr.Status != models.RequestPending {
		return nil, ErrStatusConflict
	}
	cr.Status = to
	cr.RejectionReason = cloneString(reason)
	cr.ReviewedAt = &at
	m.requests[id] = cr
	out := m.withSellerContact(cr)
	return &out, nil
}

func (m *MemoryStore) ExpirePending(_ context.Context, createdBefore time.Time, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, cr := range m.requests {
		if cr.Status != models.RequestPending || !cr.CreatedAt.Before(createdBefore) {
			continue
		}
		cr.Status = models.RequestExpired
		reviewed := at
		cr.ReviewedAt = &reviewed
		m.requests[id] = cr
		n++
	}
	return n, nil
}
