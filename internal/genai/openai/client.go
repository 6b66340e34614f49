package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/utils"
	"gemini-vision-explorer/internal/vision"

	gogpt "github.com/sashabaranov/go-openai"
)

const providerName = "openai"

var _ vision.LocatorIface = (*Client)(nil)

// Client OpenAI 兼容接口的目标查找客户端
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Config 客户端配置
type Config struct {
	BaseURL    string // 例如 https://api.openai.com/v1，也可以是任意兼容服务
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}
}

// NewClientFromConfig 从配置创建客户端
func NewClientFromConfig(cfg *common.Config) *Client {
	return NewClient(Config{
		BaseURL: cfg.GenAIBaseURL,
		Timeout: time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
}

// LocateObject 以一条多模态用户消息发送指令和两张图片，返回 choices[0] 的内容
func (c *Client) LocateObject(ctx context.Context, req vision.LocateRequest) (string, error) {
	if req.APIKey == "" {
		return "", c.callError(req.Model, errors.New("API key is required"))
	}
	if req.Model == "" {
		return "", c.callError(req.Model, errors.New("model name is required"))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	clientConfig := gogpt.DefaultConfig(req.APIKey)
	if c.baseURL != "" {
		clientConfig.BaseURL = c.baseURL
	}
	clientConfig.HTTPClient = c.httpClient
	client := gogpt.NewClientWithConfig(clientConfig)

	prompt := vision.BuildPrompt(req.Instruction)
	message := gogpt.ChatCompletionMessage{
		Role: gogpt.ChatMessageRoleUser,
		MultiContent: []gogpt.ChatMessagePart{
			{Type: gogpt.ChatMessagePartTypeText, Text: prompt},
			{Type: gogpt.ChatMessagePartTypeText, Text: "Target object:"},
			{
				Type:     gogpt.ChatMessagePartTypeImageURL,
				ImageURL: &gogpt.ChatMessageImageURL{URL: utils.DataURI(req.Target.MIMEType, req.Target.Data)},
			},
			{Type: gogpt.ChatMessagePartTypeText, Text: "Scene:"},
			{
				Type:     gogpt.ChatMessagePartTypeImageURL,
				ImageURL: &gogpt.ChatMessageImageURL{URL: utils.DataURI(req.Scene.MIMEType, req.Scene.Data)},
			},
		},
	}

	common.WithFields(map[string]interface{}{
		"model":       req.Model,
		"prompt":      utils.TruncateForLog(prompt, 120),
		"target_size": len(req.Target.Data),
		"scene_size":  len(req.Scene.Data),
	}).Debug("Starting OpenAI-compatible object lookup")

	resp, err := client.CreateChatCompletion(ctx, gogpt.ChatCompletionRequest{
		Model:    req.Model,
		Messages: []gogpt.ChatCompletionMessage{message},
	})
	if err != nil {
		return "", c.callError(req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", c.callError(req.Model, fmt.Errorf("no choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) callError(model string, err error) error {
	return &vision.CallError{Provider: providerName, Model: model, Err: err}
}
