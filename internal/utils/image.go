package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器

	_ "golang.org/x/image/webp" // 注册 WEBP 解码器
)

// 远程图片下载上限
const maxDownloadImageBytes = 50 << 20

var (
	ErrEmptyImage        = errors.New("image data is empty")
	ErrUndecodableImage  = errors.New("image could not be decoded")
	ErrUnsupportedFormat = errors.New("image format is not allowed")
	errInvalidDataURI    = errors.New("invalid data URI")
)

// ImageInfo 图片检查结果
type ImageInfo struct {
	Format   string // 解码器识别出的格式: jpeg, png, gif, webp
	MIMEType string
	Width    int
	Height   int
}

// InspectImage 解码图片头部，确认数据是允许格式的图片
func InspectImage(data []byte, allowedFormats []string) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	if !FormatAllowed(format, allowedFormats) {
		return ImageInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return ImageInfo{
		Format:   format,
		MIMEType: MimeTypeFromFormat(format),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// FormatAllowed 检查格式是否在允许列表中（不区分大小写，jpg 等同 jpeg）
func FormatAllowed(format string, allowedFormats []string) bool {
	format = normalizeFormat(format)
	for _, allowed := range allowedFormats {
		if normalizeFormat(allowed) == format {
			return true
		}
	}
	return false
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

// MimeTypeFromFormat 根据格式名返回 MIME 类型
func MimeTypeFromFormat(format string) string {
	switch normalizeFormat(format) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// DownloadImageFromURL 从 URL 下载图片，返回图片数据和 MIME 类型
func DownloadImageFromURL(ctx context.Context, url string) ([]byte, string, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(imageData)) > maxDownloadImageBytes {
		return nil, "", fmt.Errorf("failed to download image: larger than %d bytes", maxDownloadImageBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = InferMimeTypeFromURL(url)
	}

	return imageData, mimeType, nil
}

// InferMimeTypeFromURL 从 URL 推断 MIME 类型（不区分大小写）
func InferMimeTypeFromURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if dot := strings.LastIndex(url, "."); dot >= 0 && dot > strings.LastIndex(url, "/") {
		return MimeTypeFromFormat(url[dot+1:])
	}
	return "image/jpeg"
}

// ParseDataURI 解析 data:<mime>;base64,<data> 格式
func ParseDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errInvalidDataURI
	}
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", errInvalidDataURI
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return data, mimeType, nil
}

// DataURI 把图片数据编码为 data URI
func DataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如模型原始输出）
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
