package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/analyzer"

	"github.com/gin-gonic/gin"
)

var (
	//go:embed tmpl/*.html
	tmplFS embed.FS

	indexTmpl = template.Must(template.ParseFS(tmplFS, "tmpl/index.html"))
)

// Server 表单页面和 JSON 接口
type Server struct {
	svc            *analyzer.Service
	settings       analyzer.Settings
	uploadMaxBytes int64
	engine         *gin.Engine
	hs             *http.Server
}

// NewServer 创建 HTTP 服务，addr 形如 0.0.0.0:8501
func NewServer(svc *analyzer.Service, addr string, uploadMaxBytes int64) *Server {
	s := &Server{
		svc:            svc,
		settings:       svc.Settings(),
		uploadMaxBytes: uploadMaxBytes,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetHTMLTemplate(indexTmpl)
	engine.MaxMultipartMemory = uploadMaxBytes

	engine.GET("/", s.handleIndex)
	engine.POST("/analyze", s.handleAnalyzeForm)

	api := engine.Group("/api")
	api.GET("/models", s.handleModels)
	api.POST("/analyze", s.handleAnalyzeAPI)

	s.engine = engine
	s.hs = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 阻塞运行，正常关闭时返回 http.ErrServerClosed
func (s *Server) Start() error {
	common.Infof("Web UI listening on http://%s", s.hs.Addr)
	return s.hs.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hs.Shutdown(ctx)
}

// requestLogger 用 logrus 记录访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		common.WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}).Debug("HTTP request")
	}
}
