package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/surplus-market/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRequestRepository stores contact requests. Reads always carry the
// seller contact; masking is applied by the caller through the request views.
type ContactRequestRepository interface {
	CreateContactRequest(ctx context.Context, buyerCompanyID, sellerCompanyID int64, req models.NewContactRequest) (*models.ContactRequest, error)
	GetContactRequest(ctx context.Context, id int64) (*models.ContactRequest, error)
	HasActiveRequest(ctx context.Context, productID, buyerCompanyID int64) (bool, error)
	ListContactRequests(ctx context.Context, companyID int64, role models.RequestRole, limit, offset int) ([]models.ContactRequest, error)
	ReviewContactRequest(ctx context.Context, id int64, to models.RequestStatus, reason *string, at time.Time) (*models.ContactRequest, error)
	ExpirePending(ctx context.Context, createdBefore time.Time, at time.Time) (int64, error)
}

// PostgresContactRequestRepository implements ContactRequestRepository on PostgreSQL.
type PostgresContactRequestRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresContactRequestRepository creates a new PostgresContactRequestRepository.
func NewPostgresContactRequestRepository(db *pgxpool.Pool) *PostgresContactRequestRepository {
	return &PostgresContactRequestRepository{DB: db}
}

const contactRequestSelect = `
	SELECT cr.id, cr.product_id, cr.buyer_company_id, cr.seller_company_id, cr.message,
		cr.contact_phone, cr.nda_accepted, cr.status, cr.rejection_reason, cr.created_at, cr.reviewed_at,
		s.phone, s.email, s.name
	FROM contact_requests cr
	JOIN companies s ON s.id = cr.seller_company_id`

func scanContactRequest(row scanner) (*models.ContactRequest, error) {
	var (
		cr      models.ContactRequest
		contact models.SellerContact
	)
	if err := row.Scan(
		&cr.ID,
		&cr.ProductID,
		&cr.BuyerCompanyID,
		&cr.SellerCompanyID,
		&cr.Message,
		&cr.ContactPhone,
		&cr.NDAAccepted,
		&cr.Status,
		&cr.RejectionReason,
		&cr.CreatedAt,
		&cr.ReviewedAt,
		&contact.Phone,
		&contact.Email,
		&contact.CompanyName); err != nil {
		return nil, err
	}
	cr.SetSellerContact(contact)
	return &cr, nil
}

// CreateContactRequest inserts a Pending request. The partial unique index on
// active requests turns a concurrent duplicate into ErrDuplicateActive.
func (r *PostgresContactRequestRepository) CreateContactRequest(ctx context.Context, buyerCompanyID, sellerCompanyID int64, req models.NewContactRequest) (*models.ContactRequest, error) {
	query := `
		INSERT INTO contact_requests (product_id, buyer_company_id, seller_company_id, message, contact_phone, nda_accepted, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := r.DB.QueryRow(
		ctx,
		query,
		req.ProductID,
		buyerCompanyID,
		sellerCompanyID,
		req.Message,
		req.ContactPhone,
		req.NDAAccepted,
		int16(models.RequestPending)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateActive
		}
		return nil, fmt.Errorf("failed to insert contact request: %w", err)
	}
	return r.GetContactRequest(ctx, id)
}

// GetContactRequest returns a request by id.
func (r *PostgresContactRequestRepository) GetContactRequest(ctx context.Context, id int64) (*models.ContactRequest, error) {
	cr, err := scanContactRequest(r.DB.QueryRow(ctx, contactRequestSelect+` WHERE cr.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return cr, nil
}

// HasActiveRequest reports whether the buyer already has a Pending or Approved
// request for the product.
func (r *PostgresContactRequestRepository) HasActiveRequest(ctx context.Context, productID, buyerCompanyID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM contact_requests
			WHERE product_id = $1 AND buyer_company_id = $2 AND status = ANY($3)
		)`
	var exists bool
	active := []int16{int16(models.RequestPending), int16(models.RequestApproved)}
	if err := r.DB.QueryRow(ctx, query, productID, buyerCompanyID, active).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListContactRequests returns the requests a company received as seller or sent as buyer.
func (r *PostgresContactRequestRepository) ListContactRequests(ctx context.Context, companyID int64, role models.RequestRole, limit, offset int) ([]models.ContactRequest, error) {
	var column string
	switch role {
	case models.RoleReceived:
		column = "cr.seller_company_id"
	case models.RoleSent:
		column = "cr.buyer_company_id"
	default:
		return nil, fmt.Errorf("unknown request role %q", role)
	}

	query := contactRequestSelect + fmt.Sprintf(` WHERE %s = $1 ORDER BY cr.created_at DESC, cr.id DESC LIMIT $2 OFFSET $3`, column)
	rows, err := r.DB.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.ContactRequest
	for rows.Next() {
		cr, err := scanContactRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *cr)
	}
	return requests, rows.Err()
}

// ReviewContactRequest records the seller decision. Only a Pending request can
// be decided; anything else yields ErrStatusConflict.
func (r *PostgresContactRequestRepository) ReviewContactRequest(ctx context.Context, id int64, to models.RequestStatus, reason *string, at time.Time) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = $1, rejection_reason = $2, reviewed_at = $3
		WHERE id = $4 AND status = $5
		RETURNING id`
	var updated int64
	err := r.DB.QueryRow(ctx, query, int16(to), reason, at, id, int16(models.RequestPending)).Scan(&updated)
	if err == nil {
		return r.GetContactRequest(ctx, updated)
	}
	if err = notFound(err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.GetContactRequest(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

// ExpirePending moves Pending requests created before the cutoff to Expired
// and returns how many changed.
func (r *PostgresContactRequestRepository) ExpirePending(ctx context.Context, createdBefore time.Time, at time.Time) (int64, error) {
	query := `
		UPDATE contact_requests
		SET status = $1, reviewed_at = $2
		WHERE status = $3 AND created_at < $4`
	tag, err := r.DB.Exec(ctx, query, int16(models.RequestExpired), at, int16(models.RequestPending), createdBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to expire contact requests: %w", err)
	}
	return tag.RowsAffected(), nil
}
