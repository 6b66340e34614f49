package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/utils"
	"gemini-vision-explorer/internal/vision"

	"google.golang.org/genai"
)

const providerName = "gemini"

var _ vision.LocatorIface = (*Client)(nil)

// Client Gemini 目标查找客户端。不持有凭据，每次调用使用请求里的 API Key。
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Config Gemini 客户端配置
type Config struct {
	BaseURL    string        // 自定义 Base URL，如果为空则使用默认值
	Timeout    time.Duration // 请求超时时间，0 表示只使用传输层默认值
	HTTPClient *http.Client  // 可选，复用连接
}

// NewClient 创建新的 Gemini 客户端
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

// LocateObject 把两张图片和组合后的指令发给 Gemini，原样返回模型的文本输出
func (c *Client) LocateObject(ctx context.Context, req vision.LocateRequest) (string, error) {
	if req.APIKey == "" {
		return "", c.callError(req.Model, errors.New("API key is required"))
	}
	if req.Model == "" {
		return "", c.callError(req.Model, errors.New("model name is required"))
	}

	prompt := vision.BuildPrompt(req.Instruction)

	common.WithFields(map[string]interface{}{
		"model":       req.Model,
		"prompt":      utils.TruncateForLog(prompt, 120),
		"target_size": len(req.Target.Data),
		"scene_size":  len(req.Scene.Data),
	}).Debug("Starting Gemini object lookup")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// 凭据只属于本次请求，所以每次调用单独创建 genai 客户端
	clientConfig := &genai.ClientConfig{
		APIKey:     req.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{
			BaseURL: c.baseURL,
		}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return "", c.callError(req.Model, fmt.Errorf("failed to create genai client: %w", err))
	}

	parts := []*genai.Part{
		{Text: prompt},
		{Text: "Target object:"},
		{InlineData: &genai.Blob{Data: req.Target.Data, MIMEType: req.Target.MIMEType}},
		{Text: "Scene:"},
		{InlineData: &genai.Blob{Data: req.Scene.Data, MIMEType: req.Scene.MIMEType}},
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, []*genai.Content{
		{Role: "user", Parts: parts},
	}, nil)
	if err != nil {
		return "", c.callError(req.Model, err)
	}

	text, err := responseText(result)
	if err != nil {
		return "", c.callError(req.Model, err)
	}

	common.WithFields(map[string]interface{}{
		"model":  req.Model,
		"length": len(text),
	}).Debug("Gemini object lookup finished")

	return text, nil
}

// responseText 拼接第一个候选结果中的文本（跳过思考内容）
func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in candidate")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in candidate")
	}
	return sb.String(), nil
}

func (c *Client) callError(model string, err error) error {
	return &vision.CallError{Provider: providerName, Model: model, Err: err}
}
