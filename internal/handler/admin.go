package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mypharma/pharma-backend/internal/model"
	"github.com/mypharma/pharma-backend/internal/repository"
)

// AdminHandler serves the capability-gated management endpoints.
type AdminHandler struct {
	Products *repository.ProductRepo
	Audit    *repository.AuditRepo
	Log      *zap.Logger
}

func NewAdminHandler(products *repository.ProductRepo, audit *repository.AuditRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Products: products, Audit: audit, Log: log}
}

type createProductRequest struct {
	Name                 string `json:"name"`
	Slug                 string `json:"slug"`
	Description          string `json:"description"`
	PriceCents           uint32 `json:"price_cents"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

// CreateProduct handles POST /v1/admin/products.
func (h *AdminHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "invalid request body", "code": "validation_error"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	if req.Name == "" || req.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "name and slug are required", "code": "validation_error"})
	}

	p := model.Product{
		Name:                 req.Name,
		Slug:                 req.Slug,
		Description:          req.Description,
		PriceCents:           req.PriceCents,
		RequiresPrescription: req.RequiresPrescription,
		IsActive:             true,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Products.Create(ctx, &p)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": "a product with this slug already exists", "code": "slug_exists"})
	}
	if err != nil {
		h.Log.Error("admin: product create failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error", "code": "internal_error"})
	}
	p.ID = id
	return c.JSON(http.StatusCreated, toProductPayload(p))
}

type auditEntryPayload struct {
	ID        uint64  `json:"id"`
	UserID    *uint64 `json:"user_id"`
	Action    string  `json:"action"`
	IP        string  `json:"ip"`
	UserAgent string  `json:"user_agent"`
	Metadata  string  `json:"metadata,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ListAudit handles GET /v1/admin/audit.
func (h *AdminHandler) ListAudit(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Audit.ListRecent(ctx, limit)
	if err != nil {
		h.Log.Error("admin: audit list failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error", "code": "internal_error"})
	}
	out := make([]auditEntryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryPayload{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}
