// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"agentic-search-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Detail  string           `json:"detail,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    string(errors.CodeSuccess),
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 将应用错误映射为 HTTP 错误响应
func Error(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// ErrorWithData 错误响应附带已产出的数据（执行轨迹、部分结果）
func ErrorWithData[T any](c *gin.Context, err error, data T) {
	appErr := errors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, Response[T]{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.CodeInvalidParam,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}
