// Package dto defines the request and response payloads of the HTTP layer.
package dto

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool                  `json:"success"`
	Data      interface{}           `json:"data,omitempty"`
	Error     *errors.ErrorResponse `json:"error,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
	Timestamp int64                 `json:"timestamp"`
}

// PaginationResponse 分页响应元数据
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes the page count for a listing.
func NewPagination(page, pageSize int, total int64) PaginationResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return PaginationResponse{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse builds the error envelope and returns the HTTP status to use with it.
// ErrorResponse 创建错误响应。
func ErrorResponse(err error, requestID string) (int, *APIResponse) {
	status, body := errors.ToGenericErrorResponse(err)
	return status, &APIResponse{
		Success:   false,
		Error:     body,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// RequestID returns the id assigned to the request by the request-id middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(constants.GinKeyRequestID)
}

// SendSuccess 写入成功响应
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, RequestID(c)))
}

// SendError writes the error envelope. Rate-limit errors also carry the Retry-After header.
// SendError 写入错误响应。
func SendError(c *gin.Context, err error) {
	status, body := ErrorResponse(err, RequestID(c))
	if appErr, ok := errors.AsAppError(err); ok {
		if secs, ok := appErr.Metadata()["retry_after"].(int); ok {
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(secs))
		}
	}
	c.JSON(status, body)
}
