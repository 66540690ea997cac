package handler

import (
	"net/http"

	"magirls/internal/dto"
	"magirls/internal/middleware"
	"magirls/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ScanUpsert godoc
// @Summary      Register a scanned code
// @Description  Creates product, variant, barcode and default batch for an unknown code. A known code is returned unchanged with created=false.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ScanUpsertRequest true "Scanned item"
// @Success      200  {object} dto.ScanUpsertResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/catalog/scan-upsert [post]
func (h *CatalogHandler) ScanUpsert(c *gin.Context) {
	var req dto.ScanUpsertRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ScanUpsert(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ByCode godoc
// @Summary      Look up a variant by scanned code
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "Barcode or QR code"
// @Success      200  {object} dto.VariantResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/inventory/by-code/{code} [get]
func (h *CatalogHandler) ByCode(c *gin.Context) {
	resp, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListItems godoc
// @Summary      List active inventory items
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.InventoryItemResponse
// @Router       /v1/inventory/items [get]
func (h *CatalogHandler) ListItems(c *gin.Context) {
	resp, err := h.svc.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateItem godoc
// @Summary      Partially update a variant and its product
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        variant_id path string                true "Variant UUID"
// @Param        body       body dto.UpdateItemRequest true "Fields to change"
// @Success      200 {object} dto.InventoryItemResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/items/{variant_id} [patch]
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	id, ok := uuidParam(c, "variant_id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteItem godoc
// @Summary      Deactivate a variant
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        variant_id path string true "Variant UUID"
// @Success      200 {object} dto.DeleteItemResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/items/{variant_id} [delete]
func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	id, ok := uuidParam(c, "variant_id")
	if !ok {
		return
	}
	resp, err := h.svc.DeleteItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock godoc
// @Summary      Variants at or below the low stock threshold
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.LowStockItemResponse
// @Router       /v1/inventory/alerts/low-stock [get]
func (h *CatalogHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PriceCheck godoc
// @Summary Public price check by scanned code (no authentication)
// @Tags price
// @Produce json
// @Param code path string true "Barcode or QR code"
// @Success 200 {object} dto.PriceCheckResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/price/{code} [get]
func (h *CatalogHandler) PriceCheck(c *gin.Context) {
	resp, err := h.svc.PriceCheck(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
