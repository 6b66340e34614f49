package analyzer

import (
	"gemini-vision-explorer/common"
)

// Settings 启动时从配置构造，按值传给交互层，运行期只读
type Settings struct {
	Provider       string
	DefaultAPIKey  string
	Models         []string
	AllowedFormats []string
}

// SettingsFromConfig 从应用配置构造 Settings
func SettingsFromConfig(cfg *common.Config) Settings {
	return Settings{
		Provider:       cfg.GenAIProvider,
		DefaultAPIKey:  cfg.DefaultAPIKey,
		Models:         append([]string(nil), cfg.GenAIModels...),
		AllowedFormats: append([]string(nil), cfg.AllowedImageFormats...),
	}
}

// DefaultModel 模型列表中的第一个
func (s Settings) DefaultModel() string {
	if len(s.Models) == 0 {
		return ""
	}
	return s.Models[0]
}

// HasModel 模型是否在固定列表里
func (s Settings) HasModel(model string) bool {
	for _, m := range s.Models {
		if m == model {
			return true
		}
	}
	return false
}

// ResolveModel 不在列表中的模型回退到默认模型
func (s Settings) ResolveModel(model string) string {
	if s.HasModel(model) {
		return model
	}
	return s.DefaultModel()
}
