package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/analyzer"
	"gemini-vision-explorer/internal/genai/gemini"
	"gemini-vision-explorer/internal/genai/openai"
	"gemini-vision-explorer/internal/oss"
	"gemini-vision-explorer/internal/tools"
	"gemini-vision-explorer/internal/vision"
	"gemini-vision-explorer/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 打印配置信息（隐藏敏感信息）
	common.WithFields(map[string]interface{}{
		"mode":     config.ServerMode,
		"provider": config.GenAIProvider,
		"base_url": config.GenAIBaseURL,
		"models":   config.GenAIModels,
		"api_key":  common.MaskAPIKey(config.DefaultAPIKey),
	}).Info("Server starting...")

	svc := analyzer.NewService(newLocator(config), analyzer.SettingsFromConfig(config))

	switch config.ServerMode {
	case common.ModeMCP:
		err = runMCP(config, svc)
	default:
		err = runWeb(config, svc)
	}
	if err != nil {
		common.Fatalf("Server error: %v", err)
	}
	common.Info("Server stopped")
}

// newLocator 根据提供方创建模型客户端
func newLocator(config *common.Config) vision.LocatorIface {
	switch config.GenAIProvider {
	case common.ProviderOpenAI:
		return openai.NewClientFromConfig(config)
	default:
		return gemini.NewClientFromConfig(config)
	}
}

// runWeb 启动表单页面，收到 SIGINT/SIGTERM 后优雅关闭
func runWeb(config *common.Config, svc *analyzer.Service) error {
	if config.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(svc, config.GetServerAddr(), config.UploadMaxBytes())

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		common.Info("Shutting down web server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runMCP 以 stdio 方式提供 MCP tools，日志只写 stderr
func runMCP(config *common.Config, svc *analyzer.Service) error {
	store, err := oss.NewOSSClientFromConfig(config)
	if err != nil {
		return fmt.Errorf("failed to create OSS client: %w", err)
	}
	if store == nil {
		common.Debug("OSS not configured, s3:// image references are disabled")
	}

	// 创建 MCP 服务器
	s := server.NewMCPServer(
		"Gemini Vision Explorer",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterTools(s, svc, tools.NewImageFetcher(store)); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	// 启动 stdio 服务器
	return server.ServeStdio(s)
}
