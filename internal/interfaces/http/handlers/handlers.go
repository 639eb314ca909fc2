// Package handlers adapts HTTP requests to the domain services. Handlers bind
// input, call one service method and record failures on the gin context for
// middleware.ErrorHandler to render.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/your-org/marketplace-api/internal/domain/order"
	"github.com/your-org/marketplace-api/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		abortWithError(c, apperror.Validation("invalid "+name).
			WithDetails(map[string]string{name: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON binds a JSON body when one was sent
func bindOptionalJSON(c *gin.Context, dest any) bool {
	if c.Request.ContentLength == 0 {
		if err := binding.Validator.ValidateStruct(dest); err != nil {
			abortWithError(c, err)
			return false
		}
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		abortWithError(c, err)
		return false
	}
	return true
}

func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		abortWithError(c, apperror.Unauthorized("authentication required"))
	}
	return id, ok
}

func currentActor(c *gin.Context) (order.Actor, bool) {
	id, ok := currentUserID(c)
	if !ok {
		return order.Actor{}, false
	}
	email, _ := middleware.GetUserEmailFromContext(c)
	return order.Actor{UserID: id, Email: email, IsAdmin: middleware.IsAdminFromContext(c)}, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		abortWithError(c, apperror.Validation("invalid "+key).
			WithDetails(map[string]string{key: "must be a non-negative integer"}))
		return 0, false
	}
	return v, true
}
