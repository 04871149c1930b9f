package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/repository"
)

// ProductHandler serves the public browse slice of the catalog.
type ProductHandler struct {
	Products *repository.ProductRepo
	Log      *zap.Logger
}

func NewProductHandler(products *repository.ProductRepo, log *zap.Logger) *ProductHandler {
	return &ProductHandler{Products: products, Log: log}
}

type productPayload struct {
	ID                   uint64 `json:"id"`
	Name                 string `json:"name"`
	Slug                 string `json:"slug"`
	Description          string `json:"description"`
	PriceCents           uint32 `json:"price_cents"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

func toProductPayload(p model.Product) productPayload {
	return productPayload{
		ID:                   p.ID,
		Name:                 p.Name,
		Slug:                 p.Slug,
		Description:          p.Description,
		PriceCents:           p.PriceCents,
		RequiresPrescription: p.RequiresPrescription,
	}
}

// List handles GET /v1/products.
func (h *ProductHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Products.ListActive(ctx, limit)
	if err != nil {
		h.Log.Error("products: list failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error", "code": "internal_error"})
	}
	out := make([]productPayload, 0, len(items))
	for _, p := range items {
		out = append(out, toProductPayload(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// Get handles GET /v1/products/:id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "product not found", "code": "not_found"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("products: get failed", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error", "code": "internal_error"})
	}
	if p == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "product not found", "code": "not_found"})
	}
	return c.JSON(http.StatusOK, toProductPayload(*p))
}
