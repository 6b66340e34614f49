package tools

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gemini-vision-explorer/internal/analyzer"
	"gemini-vision-explorer/internal/oss"
	"gemini-vision-explorer/internal/utils"
)

// ImageFetcher 把工具参数里的图片引用读成内存数据。
// 支持 http(s) URL、data URI 和 s3://bucket/key（需要配置 OSS）。
type ImageFetcher struct {
	store oss.OSSIface
}

// NewImageFetcher store 可以为 nil，此时不支持 s3:// 引用
func NewImageFetcher(store oss.OSSIface) *ImageFetcher {
	return &ImageFetcher{store: store}
}

// Fetch 空引用返回 nil，表示未提供图片
func (f *ImageFetcher) Fetch(ctx context.Context, ref string) (*analyzer.Upload, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, nil

	case strings.HasPrefix(ref, "data:"):
		data, _, err := utils.ParseDataURI(ref)
		if err != nil {
			return nil, err
		}
		return &analyzer.Upload{Filename: "inline", Data: data}, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, _, err := utils.DownloadImageFromURL(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &analyzer.Upload{Filename: urlBase(ref), Data: data}, nil

	case strings.HasPrefix(ref, "s3://"):
		if f.store == nil {
			return nil, fmt.Errorf("s3 references require OSS_ACCESS_KEY and OSS_SECRET_KEY to be configured")
		}
		bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 reference %q, expected s3://bucket/key", ref)
		}
		data, _, err := f.store.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return &analyzer.Upload{Filename: path.Base(key), Data: data}, nil

	default:
		return nil, fmt.Errorf("unsupported image reference %q: use an http(s) URL, a data URI or s3://bucket/key",
			utils.TruncateForLog(ref, 64))
	}
}

func urlBase(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ref
	}
	return path.Base(u.Path)
}
