/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/banking_dq_pipeline.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"bankdq-service/api/controllers"
	apimiddleware "bankdq-service/api/middleware"
	"bankdq-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 可选Bearer Token鉴权，未配置API_TOKEN时关闭
	r.Use(apimiddleware.NewAuthMiddleware().Middleware)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 流水线管理
	r.Route("/pipeline", func(r chi.Router) {
		pipelineController := controllers.NewPipelineController(service.GlobalPipelineService)
		r.Post("/runs", pipelineController.TriggerRun)
		r.Get("/runs", pipelineController.ListRuns)
		r.Get("/runs/{run_id}", pipelineController.GetRun)
	})

	// 质量报告与隔离记录
	r.Route("/reports", func(r chi.Router) {
		reportController := controllers.NewReportController(service.GlobalLoader, service.GlobalReportCache)
		r.Get("/latest", reportController.GetLatestReport)
		r.Get("/{run_id}", reportController.GetReport)
		r.Get("/{run_id}/quarantine", reportController.ListQuarantine)
	})
}
