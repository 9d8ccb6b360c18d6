package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meli_hub_v1/internal/service"
)

// respondError 把服务层错误分类映射成 HTTP 状态码
// 未分类错误一律 500，避免把内部细节当 4xx 泄出去
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrBadRequest),
		errors.Is(err, service.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrNoMeliToken),
		errors.Is(err, service.ErrMeliTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrUserDisabled):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrUsernameExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, gin.H{"error": err.Error()})
}
