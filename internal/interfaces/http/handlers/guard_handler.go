// Package handlers holds the gin handlers of the public API. Handlers bind and validate the
// request, call one application service and write the APIResponse envelope.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
	"github.com/turtacn/shieldgate/pkg/utils"
)

// GuardHandler exposes input and output validation to other services.
// GuardHandler 向其他服务开放输入/输出校验。
type GuardHandler struct {
	guard  service.GuardrailAppService
	logger logger.Logger
}

// NewGuardHandler 创建校验处理器
func NewGuardHandler(guard service.GuardrailAppService, log logger.Logger) *GuardHandler {
	return &GuardHandler{guard: guard, logger: log.WithComponent("guard_handler")}
}

// ValidateInput 校验用户输入
// POST /api/v1/guard/input
//
// A blocked message is a successful call; the verdict says is_safe=false.
func (h *GuardHandler) ValidateInput(c *gin.Context) {
	var req dto.ValidateInputRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	tenantID, ok := tenancy.ValidatedTenantID(ctx)
	if !ok {
		dto.SendError(c, errors.ErrAuthentication("missing tenant context"))
		return
	}

	verdict := h.guard.ValidateInput(ctx, req.Text, tenantID)
	dto.SendSuccess(c, http.StatusOK, dto.NewInputVerdictResponse(verdict))
}

// ValidateOutput 校验生成的回复
// POST /api/v1/guard/output
func (h *GuardHandler) ValidateOutput(c *gin.Context) {
	var req dto.ValidateOutputRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	tenantID, ok := tenancy.ValidatedTenantID(ctx)
	if !ok {
		dto.SendError(c, errors.ErrAuthentication("missing tenant context"))
		return
	}

	var rec *models.FinancialRecord
	if req.Query != "" {
		var err error
		rec, err = h.guard.FindVerifiedRecord(ctx, tenantID, req.Query)
		if err != nil {
			dto.SendError(c, err)
			return
		}
	}

	out := h.guard.ValidateOutput(ctx, req.Text, rec)
	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	dto.SendSuccess(c, http.StatusOK, &dto.OutputVerdictResponse{
		Accepted:  out.Accepted,
		FinalText: out.FinalText,
		Warnings:  warnings,
		Grounded:  rec != nil,
	})
}

// bindJSON binds and validates a JSON body, writing the 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("invalid request body"))
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		dto.SendError(c, err)
		return false
	}
	return true
}
