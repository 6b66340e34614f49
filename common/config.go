package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	ModeWeb = "web"
	ModeMCP = "mcp"
)

// 各提供方的默认模型列表，第一个为默认模型
var defaultModels = map[string][]string{
	ProviderGemini: {"gemini-2.5-flash"},
	ProviderOpenAI: {"gpt-4o-mini"},
}

// Config 应用配置结构
type Config struct {
	// GenAI 提供方: gemini 或 openai
	GenAIProvider string

	// 可选的默认 API Key，仅用于预填表单，不是必需项
	DefaultAPIKey string
	GenAIBaseURL  string
	// 可选模型列表（固定枚举），第一个为默认模型
	GenAIModels []string
	// GenAI 请求超时时间（秒），0 表示不额外设置超时
	GenAITimeoutSeconds int

	// 运行模式: web 或 mcp
	ServerMode    string
	ServerAddress string
	ServerPort    string
	// 上传限制
	UploadMaxMB         int
	AllowedImageFormats []string

	// OSS 配置（仅用于 mcp 模式下解析 s3:// 图片引用，只读）
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件和环境变量加载配置，并初始化日志系统
func LoadConfig() (*Config, error) {
	// 加载 .env 文件（如果存在）；stdout 在 mcp 模式下承载协议，提示信息写到 stderr
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	// mcp 模式使用 stdio 通信，日志不能写到 stdout
	if config.ServerMode == ModeMCP && !strings.EqualFold(logConfig.Output, "file") {
		logConfig.Output = "stderr"
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

// configFromEnv 只读取环境变量，不产生副作用
func configFromEnv() (*Config, error) {
	provider := strings.ToLower(getEnv("GENAI_PROVIDER", ProviderGemini))
	models, ok := defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported GENAI_PROVIDER: %s", provider)
	}

	config := &Config{
		GenAIProvider:       provider,
		DefaultAPIKey:       getEnv("GOOGLE_API_KEY", getEnv("GENAI_API_KEY", "")),
		GenAIBaseURL:        getEnv("GENAI_BASE_URL", ""),
		GenAIModels:         getEnvList("GENAI_MODELS", models),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 0),
		ServerMode:          strings.ToLower(getEnv("SERVER_MODE", ModeWeb)),
		ServerAddress:       getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:          getEnv("SERVER_PORT", "8501"),
		UploadMaxMB:         getEnvInt("UPLOAD_MAX_MB", 20),
		AllowedImageFormats: getEnvList("ALLOWED_IMAGE_FORMATS", []string{"jpeg", "png"}),
		// OSS 配置
		OSSEndpoint:  getEnv("OSS_ENDPOINT", ""),
		OSSRegion:    getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey: getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey: getEnv("OSS_SECRET_KEY", ""),
		// 日志配置
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	switch config.ServerMode {
	case ModeWeb, ModeMCP:
	default:
		return nil, fmt.Errorf("unsupported SERVER_MODE: %s", config.ServerMode)
	}

	if config.GenAITimeoutSeconds < 0 {
		return nil, fmt.Errorf("GENAI_TIMEOUT_SECONDS must not be negative, got %d", config.GenAITimeoutSeconds)
	}
	if config.UploadMaxMB <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_MB must be positive, got %d", config.UploadMaxMB)
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// getEnvList 获取逗号分隔的列表，忽略空项
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// UploadMaxBytes 返回上传大小上限（字节）
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) << 20
}

// OSSEnabled 是否配置了对象存储
func (c *Config) OSSEnabled() bool {
	return c.OSSAccessKey != "" && c.OSSSecretKey != ""
}

// MaskAPIKey 隐藏 API Key 的敏感部分
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
