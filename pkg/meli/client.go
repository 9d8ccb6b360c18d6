package meli

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// 默认线上地址，测试时服务层会把 base 指向 httptest 服务器
const (
	DefaultAPIBase  = "https://api.mercadolibre.com"
	DefaultAuthBase = "https://auth.mercadolibre.com.ar"
)

// NewClient 创建统一配置的 Resty 客户端
// 它是全系统访问 Meli 开放平台的统一网络入口
func NewClient() *resty.Client {
	return resty.New().
		SetTimeout(20*time.Second).                // 拉取商品列表可能比较慢，给 20s
		SetHeader("User-Agent", "MeliHub-Go-App/1.0").
		SetHeader("Accept", "application/json")
}
