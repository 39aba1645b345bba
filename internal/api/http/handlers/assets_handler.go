package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssetsHandler serves the read-only asset catalogue so requesters can pick
// the asset a ticket is about. Asset lifecycle is managed elsewhere.
type AssetsHandler struct {
	assets repository.AssetRepository
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assets repository.AssetRepository) *AssetsHandler {
	return &AssetsHandler{assets: assets}
}

// List GET /assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	assets, err := h.assets.List(c.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, assetResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid asset id", nil)
	}
	asset, err := h.assets.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("asset", map[string]any{"asset_id": id})
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

func assetResponse(asset *domain.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:       asset.ID,
		Name:     asset.Name,
		Code:     asset.Code,
		Category: asset.Category,
		Active:   asset.Active,
	}
}
