package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/repository"
	"github.com/senyabanana/surplus-market/internal/utils"
)

// Product actions, also used as metric labels.
const (
	ActionCreate    = "create"
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
	ActionSold      = "sold"
	ActionDelete    = "delete"
)

type ProductService struct {
	Products  repository.ProductRepository
	Companies repository.CompanyRepository
	Metrics   *metrics.Metrics
}

// NewProductService creates a new ProductService.
func NewProductService(products repository.ProductRepository, companies repository.CompanyRepository, m *metrics.Metrics) *ProductService {
	return &ProductService{Products: products, Companies: companies, Metrics: m}
}

// Create adds a listing for the caller's company. It starts as Draft, or as
// Active when publishing is requested and the company is verified.
func (s *ProductService) Create(ctx context.Context, caller models.Identity, req models.ProductRequest) (*models.Product, error) {
	product, err := s.create(ctx, caller, req)
	s.Metrics.ObserveProduct(ActionCreate, err)
	return product, err
}

func (s *ProductService) create(ctx context.Context, caller models.Identity, req models.ProductRequest) (*models.Product, error) {
	sellerID, err := requireCompany(caller)
	if err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if problems := req.Validate(); len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	status := models.ProductDraft
	if req.Publish {
		if err := s.requireVerifiedSeller(ctx, sellerID); err != nil {
			return nil, err
		}
		status = models.ProductActive
	}

	product, err := s.Products.CreateProduct(ctx, sellerID, req, status)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	logger.FromContext(ctx).Info("product created",
		zap.Int64("product_id", product.ID),
		zap.Stringer("status", product.Status))
	return product, nil
}

// ListActive returns the buyer-facing catalog.
func (s *ProductService) ListActive(ctx context.Context, categories, currencies []string, limitStr, offsetStr string) ([]models.Product, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	filter := models.ProductFilter{Limit: limit, Offset: offset}
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			filter.Categories = append(filter.Categories, c)
		}
	}
	for _, c := range currencies {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			filter.Currencies = append(filter.Currencies, c)
		}
	}

	products, err := s.Products.ListActiveProducts(ctx, filter)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	return products, nil
}

// ListMine returns every listing of the caller's company regardless of status.
func (s *ProductService) ListMine(ctx context.Context, caller models.Identity, limitStr, offsetStr string) ([]models.Product, error) {
	sellerID, err := requireCompany(caller)
	if err != nil {
		return nil, err
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	products, err := s.Products.ListCompanyProducts(ctx, sellerID, limit, offset)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	return products, nil
}

// Get returns a product. Listings that are not Active are visible only to their owner.
func (s *ProductService) Get(ctx context.Context, caller models.Identity, id int64) (*models.Product, error) {
	product, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	if !product.Status.VisibleToBuyers() && !caller.Owns(product.SellerCompanyID) {
		return nil, models.NewErrorResponse(http.StatusNotFound, "product not found")
	}
	return product, nil
}

// Publish moves a Draft or Inactive product to Active. The owning company must be verified.
func (s *ProductService) Publish(ctx context.Context, caller models.Identity, id int64) (*models.Product, error) {
	return s.transition(ctx, caller, id, ActionPublish, models.ProductActive)
}

// Unpublish moves an Active product to Inactive.
func (s *ProductService) Unpublish(ctx context.Context, caller models.Identity, id int64) (*models.Product, error) {
	return s.transition(ctx, caller, id, ActionUnpublish, models.ProductInactive)
}

// MarkSold closes an Active product.
func (s *ProductService) MarkSold(ctx context.Context, caller models.Identity, id int64) (*models.Product, error) {
	return s.transition(ctx, caller, id, ActionSold, models.ProductSold)
}

// Delete removes a product that has not been sold.
func (s *ProductService) Delete(ctx context.Context, caller models.Identity, id int64) error {
	err := s.delete(ctx, caller, id)
	s.Metrics.ObserveProduct(ActionDelete, err)
	return err
}

func (s *ProductService) delete(ctx context.Context, caller models.Identity, id int64) error {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if product.Status == models.ProductSold {
		return models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, "sold products cannot be deleted")
	}
	if err := s.Products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return models.NewCodedError(http.StatusConflict, models.CodeStatusConflict, "sold products cannot be deleted")
		}
		return fromRepo(ctx, err, "product")
	}
	logger.FromContext(ctx).Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *ProductService) transition(ctx context.Context, caller models.Identity, id int64, action string, to models.ProductStatus) (*models.Product, error) {
	product, err := s.doTransition(ctx, caller, id, action, to)
	s.Metrics.ObserveProduct(action, err)
	return product, err
}

func (s *ProductService) doTransition(ctx context.Context, caller models.Identity, id int64, action string, to models.ProductStatus) (*models.Product, error) {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if to == models.ProductActive {
		if err := s.requireVerifiedSeller(ctx, product.SellerCompanyID); err != nil {
			return nil, err
		}
	}

	from := sourcesOf(to)
	if !utils.Contains(from, product.Status) {
		return nil, models.NewCodedError(http.StatusConflict, models.CodeStatusConflict,
			fmt.Sprintf("cannot %s a product in status %s", action, product.Status))
	}

	updated, err := s.Products.UpdateProductStatus(ctx, id, from, to)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, models.NewCodedError(http.StatusConflict, models.CodeStatusConflict,
			fmt.Sprintf("cannot %s the product, its status changed", action))
	}
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	logger.FromContext(ctx).Info("product status changed",
		zap.Int64("product_id", id),
		zap.String("action", action),
		zap.Stringer("status", updated.Status))
	return updated, nil
}

// owned loads a product and checks that the caller's company owns it.
func (s *ProductService) owned(ctx context.Context, caller models.Identity, id int64) (*models.Product, error) {
	if _, err := requireCompany(caller); err != nil {
		return nil, err
	}
	product, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, fromRepo(ctx, err, "product")
	}
	if !caller.Owns(product.SellerCompanyID) {
		return nil, models.NewErrorResponse(http.StatusForbidden, "only the owning company can change this product")
	}
	return product, nil
}

func (s *ProductService) requireVerifiedSeller(ctx context.Context, companyID int64) error {
	company, err := s.Companies.GetCompany(ctx, companyID)
	if err != nil {
		return fromRepo(ctx, err, "company")
	}
	return requireApproved(company, "publish products")
}

// sourcesOf lists the statuses from which to is reachable.
func sourcesOf(to models.ProductStatus) []models.ProductStatus {
	var from []models.ProductStatus
	for status, targets := range models.ProductTransitions {
		if utils.Contains(targets, to) {
			from = append(from, status)
		}
	}
	return from
}
