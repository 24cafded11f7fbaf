/*
 * @module api/middleware/auth
 * @description 仪表盘API鉴权中间件，校验Bearer Token；未配置API_TOKEN时鉴权关闭
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @stateFlow Token提取 -> 常量时间比对 -> 下一个处理器
 * @rules 健康检查、指标和文档路径始终放行；Token不匹配返回401
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
)

// AuthMiddleware Bearer Token鉴权中间件
type AuthMiddleware struct {
	token string
	// 白名单路径（前缀匹配，不需要鉴权）
	whitelistPaths []string
}

// NewAuthMiddleware 创建鉴权中间件，Token取自API_TOKEN环境变量
func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{
		token: os.Getenv("API_TOKEN"),
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger",
		},
	}
}

// Enabled 是否启用鉴权
func (m *AuthMiddleware) Enabled() bool {
	return m.token != ""
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *AuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 鉴权中间件处理函数
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, r, "缺少Authorization头")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.respondUnauthorized(w, r, "无效的Authorization格式，需要Bearer Token")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			m.respondUnauthorized(w, r, "Token无效")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// respondUnauthorized 返回401未授权响应
func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": message,
		"error":   "Unauthorized",
	})
}
