package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/surplus-market/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyRepository stores companies and their verification state.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, req models.CompanyRequest) (*models.Company, error)
	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	ListCompanies(ctx context.Context, statuses []models.CompanyVerificationStatus, limit, offset int) ([]models.Company, error)
	UpdateCompanyProfile(ctx context.Context, id int64, upd models.CompanyUpdate) (*models.Company, error)
	SetVerification(ctx context.Context, id int64, from []models.CompanyVerificationStatus, to models.CompanyVerificationStatus, reason *string) (*models.Company, error)
}

// PostgresCompanyRepository implements CompanyRepository on PostgreSQL.
type PostgresCompanyRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresCompanyRepository creates a new PostgresCompanyRepository.
func NewPostgresCompanyRepository(db *pgxpool.Pool) *PostgresCompanyRepository {
	return &PostgresCompanyRepository{DB: db}
}

const companyColumns = `id, name, tax_number, mersis_number, address, phone, email, verification_status, rejection_reason, created_at, updated_at`

func scanCompany(row scanner) (*models.Company, error) {
	var c models.Company
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.TaxNumber,
		&c.MersisNumber,
		&c.Address,
		&c.Phone,
		&c.Email,
		&c.VerificationStatus,
		&c.RejectionReason,
		&c.CreatedAt,
		&c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCompany registers a company in the Pending state.
func (r *PostgresCompanyRepository) CreateCompany(ctx context.Context, req models.CompanyRequest) (*models.Company, error) {
	query := `
		INSERT INTO companies (name, tax_number, mersis_number, address, phone, email, verification_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + companyColumns
	company, err := scanCompany(r.DB.QueryRow(
		ctx,
		query,
		req.Name,
		req.TaxNumber,
		req.MersisNumber,
		req.Address,
		req.Phone,
		req.Email,
		int16(models.CompanyPending)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCompany
		}
		return nil, fmt.Errorf("failed to insert company: %w", err)
	}
	return company, nil
}

// GetCompany returns a company by id.
func (r *PostgresCompanyRepository) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	company, err := scanCompany(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return company, nil
}

// ListCompanies returns companies, optionally filtered by verification status.
func (r *PostgresCompanyRepository) ListCompanies(ctx context.Context, statuses []models.CompanyVerificationStatus, limit, offset int) ([]models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	var args []interface{}
	argIndex := 1

	if len(statuses) > 0 {
		query += fmt.Sprintf(" WHERE verification_status = ANY($%d)", argIndex)
		args = append(args, companyStatusInts(statuses))
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *company)
	}
	return companies, rows.Err()
}

// UpdateCompanyProfile edits the non-legal profile fields. A rejected company
// that edits its profile is resubmitted for review.
func (r *PostgresCompanyRepository) UpdateCompanyProfile(ctx context.Context, id int64, upd models.CompanyUpdate) (*models.Company, error) {
	var updates []string
	args := []interface{}{id}
	argIndex := 2

	if upd.Address != nil {
		updates = append(updates, fmt.Sprintf("address = $%d", argIndex))
		args = append(args, *upd.Address)
		argIndex++
	}
	if upd.Phone != nil {
		updates = append(updates, fmt.Sprintf("phone = $%d", argIndex))
		args = append(args, *upd.Phone)
		argIndex++
	}
	if upd.Email != nil {
		updates = append(updates, fmt.Sprintf("email = $%d", argIndex))
		args = append(args, *upd.Email)
		argIndex++
	}
	if len(updates) == 0 {
		return r.GetCompany(ctx, id)
	}

	updates = append(updates,
		fmt.Sprintf("verification_status = CASE WHEN verification_status = $%d THEN $%d ELSE verification_status END", argIndex, argIndex+1),
		"updated_at = now()")
	args = append(args, int16(models.CompanyRejected), int16(models.CompanyUnderReview))

	query := fmt.Sprintf("UPDATE companies SET %s WHERE id = $1 RETURNING %s", strings.Join(updates, ", "), companyColumns)
	company, err := scanCompany(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return company, nil
}

// SetVerification moves the company to status to, but only from one of the
// from statuses. The reason is stored for rejections and cleared otherwise.
func (r *PostgresCompanyRepository) SetVerification(ctx context.Context, id int64, from []models.CompanyVerificationStatus, to models.CompanyVerificationStatus, reason *string) (*models.Company, error) {
	query := `
		UPDATE companies
		SET verification_status = $1, rejection_reason = $2, updated_at = now()
		WHERE id = $3 AND verification_status = ANY($4)
		RETURNING ` + companyColumns
	company, err := scanCompany(r.DB.QueryRow(ctx, query, int16(to), reason, id, companyStatusInts(from)))
	if err == nil {
		return company, nil
	}
	if err = notFound(err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.GetCompany(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func companyStatusInts(statuses []models.CompanyVerificationStatus) []int16 {
	out := make([]int16, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, int16(s))
	}
	return out
}
