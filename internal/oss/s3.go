package oss

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gemini-vision-explorer/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// 单个图片对象的读取上限
const maxObjectBytes = 50 << 20

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client   *s3.Client
	endpoint string
	region   string
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string // OSS 服务端点，例如：s3.amazonaws.com、oss-cn-hangzhou.aliyuncs.com 或 http://127.0.0.1:9000
	Region    string // 区域，例如：us-east-1 或 cn-hangzhou
	AccessKey string // Access Key ID
	SecretKey string // Secret Access Key
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(cfg S3Config) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := endpointURL(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// 自建或第三方兼容服务通常只支持 path-style
			o.UsePathStyle = !strings.Contains(endpoint, "amazonaws.com")
		}
	})

	return &S3Client{
		client:   client,
		endpoint: cfg.Endpoint,
		region:   cfg.Region,
	}, nil
}

// endpointURL 没有 scheme 的端点默认使用 https
func endpointURL(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

// GetObject 读取对象
func (c *S3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, string, error) {
	common.WithFields(map[string]interface{}{
		"bucket": bucket,
		"key":    key,
	}).Debug("Reading object from OSS")

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		common.WithError(err).WithFields(map[string]interface{}{
			"bucket": bucket,
			"key":    key,
		}).Error("Failed to read object from OSS")
		return nil, "", fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	if len(data) > maxObjectBytes {
		return nil, "", fmt.Errorf("object %s/%s is larger than %d bytes", bucket, key, maxObjectBytes)
	}

	return data, aws.ToString(out.ContentType), nil
}
