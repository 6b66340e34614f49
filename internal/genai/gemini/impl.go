package gemini

import (
	"time"

	"gemini-vision-explorer/common"
)

// NewClientFromConfig 从配置创建 Gemini 客户端
func NewClientFromConfig(cfg *common.Config) *Client {
	return NewClient(Config{
		BaseURL: cfg.GenAIBaseURL,
		Timeout: time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}
