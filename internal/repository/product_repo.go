package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/surplus-market/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ProductRepository stores product listings.
type ProductRepository interface {
	CreateProduct(ctx context.Context, sellerCompanyID int64, req models.ProductRequest, status models.ProductStatus) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListActiveProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	ListCompanyProducts(ctx context.Context, sellerCompanyID int64, limit, offset int) ([]models.Product, error)
	UpdateProductStatus(ctx context.Context, id int64, from []models.ProductStatus, to models.ProductStatus) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// PostgresProductRepository implements ProductRepository on PostgreSQL.
type PostgresProductRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresProductRepository creates a new PostgresProductRepository.
func NewPostgresProductRepository(db *pgxpool.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{DB: db}
}

const productColumns = `id, seller_company_id, title, category, status, quantity, unit_price, currency, created_at, updated_at`

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(
		&p.ID,
		&p.SellerCompanyID,
		&p.Title,
		&p.Category,
		&p.Status,
		&p.Quantity,
		&p.UnitPrice,
		&p.Currency,
		&p.CreatedAt,
		&p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a listing owned by sellerCompanyID.
func (r *PostgresProductRepository) CreateProduct(ctx context.Context, sellerCompanyID int64, req models.ProductRequest, status models.ProductStatus) (*models.Product, error) {
	query := `
		INSERT INTO products (seller_company_id, title, category, status, quantity, unit_price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns
	product, err := scanProduct(r.DB.QueryRow(
		ctx,
		query,
		sellerCompanyID,
		req.Title,
		req.Category,
		int16(status),
		req.Quantity,
		req.UnitPrice,
		req.Currency))
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return product, nil
}

// GetProduct returns a product by id; deleted products are not found.
func (r *PostgresProductRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	product, err := scanProduct(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return product, nil
}

// ListActiveProducts returns the buyer-facing catalog.
func (r *PostgresProductRepository) ListActiveProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	filters := []string{"deleted_at IS NULL", "status = $1"}
	args := []interface{}{int16(models.ProductActive)}
	argIndex := 2

	if len(filter.Categories) > 0 {
		filters = append(filters, fmt.Sprintf("category = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.Categories))
		argIndex++
	}
	if len(filter.Currencies) > 0 {
		filters = append(filters, fmt.Sprintf("currency = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.Currencies))
		argIndex++
	}

	query += " WHERE " + strings.Join(filters, " AND ")
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	return r.queryProducts(ctx, query, args...)
}

// ListCompanyProducts returns every non-deleted listing of a seller.
func (r *PostgresProductRepository) ListCompanyProducts(ctx context.Context, sellerCompanyID int64, limit, offset int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE seller_company_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	return r.queryProducts(ctx, query, sellerCompanyID, limit, offset)
}

func (r *PostgresProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// UpdateProductStatus moves a product to status to, but only from one of the from statuses.
func (r *PostgresProductRepository) UpdateProductStatus(ctx context.Context, id int64, from []models.ProductStatus, to models.ProductStatus) (*models.Product, error) {
	query := `
		UPDATE products SET status = $1, updated_at = now()
		WHERE id = $2 AND deleted_at IS NULL AND status = ANY($3)
		RETURNING ` + productColumns
	product, err := scanProduct(r.DB.QueryRow(ctx, query, int16(to), id, productStatusInts(from)))
	if err == nil {
		return product, nil
	}
	if err = notFound(err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.GetProduct(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

// DeleteProduct soft-deletes a product that has not been sold. Contact
// requests keep pointing at the row.
func (r *PostgresProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	query := `UPDATE products SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL AND status <> $2`
	tag, err := r.DB.Exec(ctx, query, id, int16(models.ProductSold))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetProduct(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

func productStatusInts(statuses []models.ProductStatus) []int16 {
	out := make([]int16, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, int16(s))
	}
	return out
}
