package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProductStatus is the publication state of a listing.
type ProductStatus int

const (
	ProductDraft    ProductStatus = 1 // created, not visible to buyers
	ProductActive   ProductStatus = 2 // listed, accepts contact requests
	ProductSold     ProductStatus = 3 // closed, kept for history
	ProductInactive ProductStatus = 4 // unpublished by the owner
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductActive, ProductSold, ProductInactive:
		return true
	default:
		return false
	}
}

func (s ProductStatus) String() string {
	switch s {
	case ProductDraft:
		return "Draft"
	case ProductActive:
		return "Active"
	case ProductSold:
		return "Sold"
	case ProductInactive:
		return "Inactive"
	default:
		return fmt.Sprintf("ProductStatus(%d)", int(s))
	}
}

// VisibleToBuyers reports whether the listing shows up in buyer-facing queries.
func (s ProductStatus) VisibleToBuyers() bool {
	switch s {
	case ProductActive:
		return true
	case ProductDraft, ProductSold, ProductInactive:
		return false
	default:
		return false
	}
}

// UnmarshalJSON rejects numbers outside the closed set.
func (s *ProductStatus) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v := ProductStatus(n)
	if !v.Valid() {
		return fmt.Errorf("unknown product status %d", n)
	}
	*s = v
	return nil
}

// ProductTransitions lists the allowed owner-driven status changes.
var ProductTransitions = map[ProductStatus][]ProductStatus{
	ProductDraft:    {ProductActive},
	ProductActive:   {ProductInactive, ProductSold},
	ProductInactive: {ProductActive},
	ProductSold:     {},
}

// Product is a surplus-stock listing owned by a seller company.
type Product struct {
	ID              int64         `json:"id"`
	SellerCompanyID int64         `json:"sellerCompanyId"`
	Title           string        `json:"title"`
	Category        string        `json:"category"`
	Status          ProductStatus `json:"status"`
	Quantity        int           `json:"quantity"`
	UnitPrice       float64       `json:"unitPrice"`
	Currency        string        `json:"currency"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ProductRequest is the creation payload.
type ProductRequest struct {
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Currency  string  `json:"currency"`
	Publish   bool    `json:"publish"`
}

// ProductFilter narrows the buyer-facing listing.
type ProductFilter struct {
	Categories []string
	Currencies []string
	Limit      int
	Offset     int
}
