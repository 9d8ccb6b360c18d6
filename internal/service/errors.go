package service

import "errors"

// ==================== 错误分类 ====================
// 控制器按 errors.Is 把分类映射成 HTTP 状态码
// 具体错误用 fmt.Errorf("%w: ...", ErrXxx) 包装分类

var (
	ErrBadRequest         = errors.New("参数错误")
	ErrUnauthorized       = errors.New("未授权")
	ErrForbidden          = errors.New("禁止访问")
	ErrNotFound           = errors.New("资源不存在")
	ErrConflict           = errors.New("资源冲突")
	ErrServiceUnavailable = errors.New("外部服务不可用")
)

// ==================== 用户相关错误 ====================

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserDisabled       = errors.New("用户已禁用")
	ErrInvalidToken       = errors.New("Token 无效")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUsernameExists     = errors.New("用户名已存在")
)

// ==================== Meli 相关错误 ====================

var (
	ErrNoMeliToken      = errors.New("尚未绑定 Mercado Libre 授权，请先完成授权")
	ErrMeliTokenExpired = errors.New("Mercado Libre Token 已过期且无法刷新，请重新授权")
	ErrInvalidState     = errors.New("OAuth state 无效或已过期")
)
