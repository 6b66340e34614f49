package vision

import (
	"context"
	"fmt"
)

// Image 已检查过的内存图片
type Image struct {
	Data     []byte
	MIMEType string
	Format   string
	Width    int
	Height   int
}

// LocateRequest 一次目标查找请求。APIKey 只在本次调用中使用，不会被保存。
type LocateRequest struct {
	APIKey      string
	Model       string
	Target      Image // 要查找的目标物体
	Scene       Image // 被搜索的场景
	Instruction string
}

// LocatorIface 向多模态模型发起一次调用，原样返回模型输出的文本
type LocatorIface interface {
	LocateObject(ctx context.Context, req LocateRequest) (string, error)
}

// CallError 外部模型调用失败。所有失败（认证、配额、网络、请求格式、服务端错误）都包装成这一种错误，不做进一步分类。
type CallError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s model %s call failed: %v", e.Provider, e.Model, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
