package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-driven setting. Variables are prefixed
// RELAY_ (e.g. RELAY_WECHAT_TOKEN, RELAY_DATABASE_URL).
type Config struct {
	Port        string `split_words:"true" default:"9000"`
	DatabaseURL string `split_words:"true" required:"true"`

	WechatCorpID          string `envconfig:"WECHAT_CORP_ID" required:"true"`
	WechatCorpSecret      string `split_words:"true" required:"true"`
	WechatToken           string `split_words:"true" required:"true"`
	WechatEncodingAESKey  string `envconfig:"WECHAT_ENCODING_AES_KEY" required:"true"`
	WechatAgentID         string `envconfig:"WECHAT_AGENT_ID" default:"1000002"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("relay", &cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.WechatEncodingAESKey) != 43 {
		return Config{}, fmt.Errorf("config: RELAY_WECHAT_ENCODING_AES_KEY must be 43 characters, got %d", len(cfg.WechatEncodingAESKey))
	}
	return cfg, nil
}
