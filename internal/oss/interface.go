package oss

import (
	"context"
)

// OSSIface 只读的对象存储接口，用于解析 s3://bucket/key 形式的图片引用
type OSSIface interface {
	// GetObject 读取对象内容，返回数据和 Content-Type
	GetObject(ctx context.Context, bucket, key string) ([]byte, string, error)
}
