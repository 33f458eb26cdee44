package middleware

import (
	"net/http"
	"strings"

	baseModel "symbiotic_city/pkg/model"
	"symbiotic_city/pkg/response"
	"symbiotic_city/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil || claims.UserID == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		role := claims.Role
		if role == "" {
			role = baseModel.RoleUser
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, role)

		c.Next()
	}
}

// RequireRole 仅允许指定角色访问，管理员始终放行
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
			c.Abort()
			return
		}
		if actor.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Insufficient permission")
		c.Abort()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(baseModel.RoleAdmin)
}

// CurrentActor 读取认证中间件写入的调用方
func CurrentActor(c *gin.Context) (baseModel.Actor, bool) {
	uid := c.GetString(ctxUserID)
	if uid == "" {
		return baseModel.Actor{}, false
	}
	return baseModel.Actor{UserID: uid, Role: c.GetString(ctxRole)}, true
}

// SetActor 直接写入调用方，供内部路由与测试使用
func SetActor(c *gin.Context, actor baseModel.Actor) {
	c.Set(ctxUserID, actor.UserID)
	c.Set(ctxRole, actor.Role)
}
