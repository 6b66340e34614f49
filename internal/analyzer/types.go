package analyzer

import (
	"gemini-vision-explorer/internal/vision"
)

// Kind 一次分析的结果类型
type Kind string

const (
	KindSuccess           Kind = "success"
	KindMissingCredential Kind = "missing_credential"
	KindMissingInput      Kind = "missing_input"
	KindInvalidImage      Kind = "invalid_image"
	KindCallFailure       Kind = "call_failure"
)

// Level 展示级别
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	MessageMissingCredential = "Please enter your API key in the sidebar."
	MessageMissingInput      = "Please upload both the Target Object and Scene images."
	MessageCallFailure       = "Analysis failed: the model service did not return a result. Check your API key, quota and network connection, then try again."
	MessageSuccess           = "Analysis Complete!"
)

// Upload 一个上传的图片文件，nil 表示未上传
type Upload struct {
	Filename string
	Data     []byte
}

// Form 触发一次分析时读取的全部输入
type Form struct {
	APIKey      string
	Model       string
	Instruction string
	Target      *Upload
	Scene       *Upload
}

// Preview 用于重新渲染的图片预览
type Preview struct {
	Caption string
	Image   vision.Image
}

// Outcome 一次触发的结果。Result 是模型原始输出，不保证是合法 JSON。
type Outcome struct {
	RequestID string
	Kind      Kind
	Level     Level
	Message   string
	Result    string
	Model     string
	Previews  []Preview
}

// Success 是否成功拿到模型输出
func (o Outcome) Success() bool {
	return o.Kind == KindSuccess
}
