package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mypharma/pharma-backend/internal/model"
)

// ProductRepo backs the browse-only catalog slice.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = `id, name, slug, description, price_cents, requires_prescription,
	is_active, created_at, updated_at`

// ListActive returns active products, newest first.
func (r *ProductRepo) ListActive(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active=1 ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents,
			&p.RequiresPrescription, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns (nil, nil) when the product does not exist or is
// inactive.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? AND is_active=1 LIMIT 1", id).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents,
			&p.RequiresPrescription, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product; slug collisions map to ErrConflict.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO products (name, slug, description, price_cents, requires_prescription, is_active)
		 VALUES (?,?,?,?,?,1)`,
		p.Name, p.Slug, p.Description, p.PriceCents, p.RequiresPrescription)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
