package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// SalesHandler 销售记录 HTTP 处理器
type SalesHandler struct {
	sales  service.SalesAppService
	logger logger.Logger
}

// NewSalesHandler 创建销售记录处理器
func NewSalesHandler(sales service.SalesAppService, log logger.Logger) *SalesHandler {
	return &SalesHandler{sales: sales, logger: log.WithComponent("sales_handler")}
}

// ListSales 查询销售记录
// GET /api/v1/sales
func (h *SalesHandler) ListSales(c *gin.Context) {
	var req dto.ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid query parameters"))
		return
	}

	resp, err := h.sales.List(c.Request.Context(), &req)
	if err != nil {
		h.sendError(c, err, "list")
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// GetSale 获取单条销售记录
// GET /api/v1/sales/:id
func (h *SalesHandler) GetSale(c *gin.Context) {
	resp, err := h.sales.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sendError(c, err, "get")
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

// CreateSale 创建销售记录
// POST /api/v1/sales
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid request body"))
		return
	}

	resp, err := h.sales.Create(c.Request.Context(), &req)
	if err != nil {
		h.sendError(c, err, "create")
		return
	}
	dto.SendSuccess(c, http.StatusCreated, resp)
}

func (h *SalesHandler) sendError(c *gin.Context, err error, op string) {
	if errors.ShouldLogError(err) {
		h.logger.Error(c.Request.Context(), "Sales request failed", err, logger.String("operation", op))
	}
	dto.SendError(c, err)
}
