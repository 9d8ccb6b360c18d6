package config

import (
	"github.com/spf13/viper"
)

// Config 全局应用配置
// 全部来源于环境变量，main 启动时加载一次，之后只读注入
type Config struct {
	ServerPort  string
	DatabaseDSN string
	FrontendURL string

	JWTSecret string

	Meli   MeliConfig
	OpenAI OpenAIConfig
}

// MeliConfig Mercado Libre 应用凭证
type MeliConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	SiteID       string

	// OverrideToken 测试/演示用的固定 Token
	// 配置后 EnsureAccessToken 直接返回它，跳过 OAuth 流程
	OverrideToken string
}

// OpenAIConfig LLM 分析服务配置
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// Load 从环境变量加载配置
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	// 默认值
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_DSN", "host=localhost user=meli_admin password=1234 dbname=meli_hub port=5432 sslmode=disable")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", "meli-hub-secret-key-change-in-production")
	v.SetDefault("MELI_REDIRECT_URI", "http://localhost:8080/api/meli/callback")
	v.SetDefault("MELI_SITE_ID", "MLA")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")

	return &Config{
		ServerPort:  v.GetString("SERVER_PORT"),
		DatabaseDSN: v.GetString("DATABASE_DSN"),
		FrontendURL: v.GetString("FRONTEND_URL"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		Meli: MeliConfig{
			ClientID:      v.GetString("MELI_CLIENT_ID"),
			ClientSecret:  v.GetString("MELI_CLIENT_SECRET"),
			RedirectURI:   v.GetString("MELI_REDIRECT_URI"),
			SiteID:        v.GetString("MELI_SITE_ID"),
			OverrideToken: v.GetString("MELI_ACCESS_TOKEN"),
		},
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("OPENAI_API_KEY"),
			Model:  v.GetString("OPENAI_MODEL"),
		},
	}
}
