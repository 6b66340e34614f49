package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/analyzer"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools 注册目标查找相关的 MCP tools：
//   - locate_object  判断目标物体是否出现在场景图中，返回模型原始输出
//   - list_models    返回可选模型列表
//
// 凭据只来自启动时的环境变量默认值。
func RegisterTools(s *server.MCPServer, svc *analyzer.Service, fetcher *ImageFetcher) error {
	settings := svc.Settings()

	locateTool := mcp.NewTool(
		"locate_object",
		mcp.WithDescription("Check whether the object shown in target_image appears in scene_image and describe its location and context. Returns the model's raw (JSON-like) text."),
		mcp.WithString("target_image",
			mcp.Required(),
			mcp.Description("Image of the object to look for: an http(s) URL, a data URI, or s3://bucket/key."),
		),
		mcp.WithString("scene_image",
			mcp.Required(),
			mcp.Description("Image of the scene to search: an http(s) URL, a data URI, or s3://bucket/key."),
		),
		mcp.WithString("instruction",
			mcp.Description("Optional extra constraints, e.g. 'The blue bottle, not the red one'."),
		),
		mcp.WithString("model",
			mcp.Description(fmt.Sprintf("Model to use. One of: %s. Defaults to %s.",
				strings.Join(settings.Models, ", "), settings.DefaultModel())),
		),
	)
	s.AddTool(locateTool, locateObjectHandler(svc, fetcher))

	listTool := mcp.NewTool(
		"list_models",
		mcp.WithDescription("List the models that locate_object accepts."),
	)
	s.AddTool(listTool, listModelsHandler(settings))

	return nil
}

func locateObjectHandler(svc *analyzer.Service, fetcher *ImageFetcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		apiKey := svc.Settings().DefaultAPIKey
		if strings.TrimSpace(apiKey) == "" {
			common.Error("locate_object: no API key configured")
			return mcp.NewToolResultError("missing API key: set GOOGLE_API_KEY (or GENAI_API_KEY) before starting the server"), nil
		}

		form := analyzer.Form{
			APIKey:      apiKey,
			Model:       req.GetString("model", ""),
			Instruction: req.GetString("instruction", ""),
		}

		var err error
		if form.Target, err = fetcher.Fetch(ctx, req.GetString("target_image", "")); err != nil {
			common.WithError(err).Warn("locate_object: failed to load target_image")
			return mcp.NewToolResultError(fmt.Sprintf("failed to load target_image: %v", err)), nil
		}
		if form.Scene, err = fetcher.Fetch(ctx, req.GetString("scene_image", "")); err != nil {
			common.WithError(err).Warn("locate_object: failed to load scene_image")
			return mcp.NewToolResultError(fmt.Sprintf("failed to load scene_image: %v", err)), nil
		}

		out := svc.Analyze(ctx, form)
		if !out.Success() {
			return mcp.NewToolResultError(out.Message), nil
		}
		return mcp.NewToolResultText(out.Result), nil
	}
}

func listModelsHandler(settings analyzer.Settings) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := json.Marshal(map[string]interface{}{
			"provider": settings.Provider,
			"models":   settings.Models,
			"default":  settings.DefaultModel(),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode models: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
