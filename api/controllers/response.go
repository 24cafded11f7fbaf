package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 成功响应
func SuccessResponse(w http.ResponseWriter, r *http.Request, msg string, data interface{}) {
	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    msg,
		Data:   data,
	})
}

// PagedResponse 分页成功响应
func PagedResponse(w http.ResponseWriter, r *http.Request, msg string, data interface{}, total int64, page, size int) {
	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    msg,
		Data:   data,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// BadRequestResponse 请求参数错误响应
func BadRequestResponse(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, APIResponse{
		Status: http.StatusBadRequest,
		Msg:    msg,
	})
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, APIResponse{
		Status: http.StatusNotFound,
		Msg:    msg,
	})
}

// ConflictResponse 状态冲突响应
func ConflictResponse(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusConflict)
	render.JSON(w, r, APIResponse{
		Status: http.StatusConflict,
		Msg:    msg,
	})
}

// InternalErrorResponse 服务器内部错误响应
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, APIResponse{
		Status: http.StatusInternalServerError,
		Msg:    msg,
	})
}
