package model

import "time"

// Product mirrors the 'products' table. The catalog here is browse-only for
// guests; management requires the product.manage capability.
type Product struct {
	ID                   uint64
	Name                 string
	Slug                 string
	Description          string
	PriceCents           uint32
	RequiresPrescription bool
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
