/*
 * @module api/controllers/pipeline_controller
 * @description 流水线控制器，提供手动触发运行和运行记录查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；触发接口同步执行，并发触发返回409
 * @dependencies bankdq-service/service/pipeline, github.com/go-chi/chi/v5
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"bankdq-service/service/pipeline"
)

// PipelineController 流水线控制器
type PipelineController struct {
	pipelineService *pipeline.Service
}

// NewPipelineController 创建流水线控制器实例
func NewPipelineController(pipelineService *pipeline.Service) *PipelineController {
	return &PipelineController{pipelineService: pipelineService}
}

// TriggerRun 手动触发一次流水线运行
// @Summary 触发流水线运行
// @Description 同步执行一次完整的质量流水线：生成、审计、清洗、报告、入库
// @Tags 流水线
// @Produce json
// @Success 200 {object} APIResponse{data=models.PipelineRun} "运行完成"
// @Failure 409 {object} APIResponse "已有运行在进行中"
// @Failure 500 {object} APIResponse "运行失败"
// @Router /pipeline/runs [post]
func (c *PipelineController) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.pipelineService.RunOnce(r.Context())
	if err != nil {
		if err == pipeline.ErrRunInProgress {
			ConflictResponse(w, r, "已有流水线运行在进行中")
			return
		}
		// 运行失败时运行记录仍然可用，连同错误一起返回
		InternalErrorResponse(w, r, "流水线运行失败: "+err.Error())
		return
	}
	SuccessResponse(w, r, "流水线运行完成", run)
}

// GetRun 查询单次运行记录
// @Summary 查询运行记录
// @Tags 流水线
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.PipelineRun} "查询成功"
// @Failure 404 {object} APIResponse "运行记录不存在"
// @Router /pipeline/runs/{run_id} [get]
func (c *PipelineController) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := c.pipelineService.Loader().GetRun(r.Context(), runID)
	if err != nil {
		NotFoundResponse(w, r, "运行记录不存在")
		return
	}
	SuccessResponse(w, r, "查询运行记录成功", run)
}

// ListRuns 分页查询运行记录
// @Summary 查询运行记录列表
// @Tags 流水线
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.PipelineRun} "查询成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /pipeline/runs [get]
func (c *PipelineController) ListRuns(w http.ResponseWriter, r *http.Request) {
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}

	runs, total, err := c.pipelineService.Loader().ListRuns(r.Context(), page, size)
	if err != nil {
		InternalErrorResponse(w, r, "查询运行记录失败")
		return
	}
	PagedResponse(w, r, "查询运行记录成功", runs, total, page, size)
}
