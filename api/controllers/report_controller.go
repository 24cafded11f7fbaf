/*
 * @module api/controllers/report_controller
 * @description 质量报告控制器，提供最新报告、历史报告和隔离记录查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow HTTP请求处理流程
 * @rules 最新报告优先读Redis缓存，未命中回源数据库；缓存故障降级为直接查库
 * @dependencies bankdq-service/service/storage, github.com/go-chi/chi/v5
 * @refs api/routes.go
 */

package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"bankdq-service/service/storage"
)

// ReportController 质量报告控制器
type ReportController struct {
	loader *storage.Loader
	cache  *storage.ReportCache // 可选
}

// NewReportController 创建质量报告控制器实例
func NewReportController(loader *storage.Loader, cache *storage.ReportCache) *ReportController {
	return &ReportController{loader: loader, cache: cache}
}

// GetLatestReport 查询最新质量报告
// @Summary 查询最新质量报告
// @Description 优先读缓存，未命中时回源数据库
// @Tags 质量报告
// @Produce json
// @Success 200 {object} APIResponse "查询成功"
// @Failure 404 {object} APIResponse "尚无质量报告"
// @Router /reports/latest [get]
func (c *ReportController) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	if c.cache != nil {
		cached, err := c.cache.GetLatest(r.Context())
		if err != nil {
			slog.Warn("报告缓存读取失败，回源数据库", "error", err.Error())
		} else if cached != nil {
			SuccessResponse(w, r, "查询最新质量报告成功", cached)
			return
		}
	}

	record, err := c.loader.LatestReport(r.Context())
	if err != nil {
		NotFoundResponse(w, r, "尚无质量报告")
		return
	}
	SuccessResponse(w, r, "查询最新质量报告成功", record)
}

// GetReport 按运行ID查询质量报告
// @Summary 查询质量报告
// @Tags 质量报告
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.QualityReportRecord} "查询成功"
// @Failure 404 {object} APIResponse "质量报告不存在"
// @Router /reports/{run_id} [get]
func (c *ReportController) GetReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	record, err := c.loader.GetReport(r.Context(), runID)
	if err != nil {
		NotFoundResponse(w, r, "质量报告不存在")
		return
	}
	SuccessResponse(w, r, "查询质量报告成功", record)
}

// ListQuarantine 分页查询隔离记录
// @Summary 查询隔离记录
// @Description 查询某次运行中被隔离的记录及其违规明细
// @Tags 质量报告
// @Produce json
// @Param run_id path string true "运行ID"
// @Param entity query string false "实体类型过滤"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.QuarantineRecord} "查询成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /reports/{run_id}/quarantine [get]
func (c *ReportController) ListQuarantine(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	entity := r.URL.Query().Get("entity")
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}

	records, total, err := c.loader.ListQuarantine(r.Context(), runID, entity, page, size)
	if err != nil {
		InternalErrorResponse(w, r, "查询隔离记录失败")
		return
	}
	PagedResponse(w, r, "查询隔离记录成功", records, total, page, size)
}
