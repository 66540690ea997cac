package handler

import (
	"fmt"
	"net/http"
	"time"

	"magirls/internal/dto"
	"magirls/internal/middleware"
	"magirls/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// ScanIncrease godoc
// @Summary      Receive stock by scanned code
// @Description  Adds qty to the default batch of the default warehouse and records an INCREASE_SCAN movement.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ScanIncreaseRequest true "Code and quantity"
// @Success      200  {object} dto.ScanIncreaseResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/inventory/scan-increase [post]
func (h *InventoryHandler) ScanIncrease(c *gin.Context) {
	var req dto.ScanIncreaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ScanIncrease(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receive godoc
// @Summary      Receive stock into a named batch
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ReceiveStockRequest true "Lot receipt"
// @Success      200  {object} dto.ReceiveStockResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/inventory/receive [post]
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ReceiveStock(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movements godoc
// @Summary      List stock movements
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        variant_id query string false "Variant UUID"
// @Param        sale_id    query string false "Sale UUID"
// @Param        kind       query string false "INCREASE_SCAN | DECREASE_SALE"
// @Param        page       query int    false "Page (default 1)"
// @Param        limit      query int    false "Page size (default 50)"
// @Success      200 {object} dto.MovementListResponse
// @Router       /v1/inventory/movements [get]
func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportMovements godoc
// @Summary      Export stock movements as XLSX
// @Tags         inventory
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        variant_id query string false "Variant UUID"
// @Param        sale_id    query string false "Sale UUID"
// @Param        kind       query string false "INCREASE_SCAN | DECREASE_SALE"
// @Success      200
// @Router       /v1/inventory/movements/export [get]
func (h *InventoryHandler) ExportMovements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	data, err := h.svc.ExportMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("movements_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// AuditBatch godoc
// @Summary      Check a batch balance against its movements
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Batch UUID"
// @Success      200 {object} dto.BatchAuditResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/batches/{id}/audit [get]
func (h *InventoryHandler) AuditBatch(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.AuditBatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
