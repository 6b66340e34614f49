package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"gemini-vision-explorer/common"
	"gemini-vision-explorer/internal/analyzer"
	"gemini-vision-explorer/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	fieldAPIKey      = "api_key"
	fieldModel       = "model"
	fieldInstruction = "instruction"
	fieldTarget      = "target"
	fieldScene       = "scene"
)

var errUploadTooLarge = errors.New("upload too large")

type modelOption struct {
	Name     string
	Selected bool
}

type previewView struct {
	Caption string
	Src     template.URL
}

type outcomeView struct {
	Level   string
	Message string
	Result  string
}

// pageData 渲染表单页面所需的数据
type pageData struct {
	ProviderLabel string
	APIKey        string
	Models        []modelOption
	Instruction   string
	Accept        string
	Previews      map[string]*previewView
	Outcome       *outcomeView
}

// AnalyzeResponse JSON 接口响应
type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
	Kind      string `json:"kind"`
	Level     string `json:"level"`
	Message   string `json:"message,omitempty"`
	Model     string `json:"model,omitempty"`
	Result    string `json:"result,omitempty"` // 模型原始输出，不保证是合法 JSON
}

// ModelsResponse 可选模型列表
type ModelsResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
	Default  string   `json:"default"`
}

// handleIndex 首次打开页面，API Key 用环境变量中的默认值预填
func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.newPage(s.settings.DefaultAPIKey, s.settings.DefaultModel(), ""))
}

// handleAnalyzeForm 处理表单提交，结果内嵌在重新渲染的页面中
func (s *Server) handleAnalyzeForm(c *gin.Context) {
	form, err := s.readForm(c)
	if err != nil {
		page := s.newPage(c.PostForm(fieldAPIKey), c.PostForm(fieldModel), c.PostForm(fieldInstruction))
		page.Outcome = &outcomeView{Level: string(analyzer.LevelError), Message: s.readErrorMessage(err)}
		c.HTML(readErrorStatus(err), "index.html", page)
		return
	}

	out := s.svc.Analyze(c.Request.Context(), form)

	page := s.newPage(form.APIKey, out.Model, form.Instruction)
	page.Outcome = &outcomeView{
		Level:   string(out.Level),
		Message: out.Message,
		Result:  out.Result,
	}
	for _, p := range out.Previews {
		page.Previews[p.Caption] = &previewView{
			Caption: p.Caption,
			Src:     template.URL(utils.DataURI(p.Image.MIMEType, p.Image.Data)),
		}
	}
	c.HTML(http.StatusOK, "index.html", page)
}

// handleAnalyzeAPI 与表单相同的字段，返回 JSON
func (s *Server) handleAnalyzeAPI(c *gin.Context) {
	form, err := s.readForm(c)
	if err != nil {
		c.JSON(readErrorStatus(err), AnalyzeResponse{
			Success: false,
			Kind:    "bad_request",
			Level:   string(analyzer.LevelError),
			Message: s.readErrorMessage(err),
		})
		return
	}

	out := s.svc.Analyze(c.Request.Context(), form)
	c.JSON(statusForKind(out.Kind), AnalyzeResponse{
		Success:   out.Success(),
		RequestID: out.RequestID,
		Kind:      string(out.Kind),
		Level:     string(out.Level),
		Message:   out.Message,
		Model:     out.Model,
		Result:    out.Result,
	})
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{
		Provider: s.settings.Provider,
		Models:   s.settings.Models,
		Default:  s.settings.DefaultModel(),
	})
}

// readForm 解析 multipart 表单；缺少的文件字段保持为 nil，由分析服务决定如何处理
func (s *Server) readForm(c *gin.Context) (analyzer.Form, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.uploadMaxBytes)

	err := c.Request.ParseMultipartForm(s.uploadMaxBytes)
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return analyzer.Form{}, errUploadTooLarge
	case err != nil && !errors.Is(err, http.ErrNotMultipart):
		return analyzer.Form{}, fmt.Errorf("failed to parse form: %w", err)
	}

	form := analyzer.Form{
		APIKey:      c.PostForm(fieldAPIKey),
		Model:       c.PostForm(fieldModel),
		Instruction: c.PostForm(fieldInstruction),
	}
	if form.Target, err = readUpload(c, fieldTarget); err != nil {
		return analyzer.Form{}, err
	}
	if form.Scene, err = readUpload(c, fieldScene); err != nil {
		return analyzer.Form{}, err
	}
	return form, nil
}

func readUpload(c *gin.Context, field string) (*analyzer.Upload, error) {
	if c.Request.MultipartForm == nil {
		return nil, nil
	}
	headers := c.Request.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}

	header := headers[0]
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", field, err)
	}
	return &analyzer.Upload{Filename: header.Filename, Data: data}, nil
}

func (s *Server) readErrorMessage(err error) string {
	if errors.Is(err, errUploadTooLarge) {
		return fmt.Sprintf("Upload too large. The two images together must be under %d MB.", s.uploadMaxBytes>>20)
	}
	common.WithError(err).Warn("Failed to read analyze form")
	return "The upload could not be read. Please try again."
}

func readErrorStatus(err error) int {
	if errors.Is(err, errUploadTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func statusForKind(kind analyzer.Kind) int {
	switch kind {
	case analyzer.KindSuccess:
		return http.StatusOK
	case analyzer.KindCallFailure:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) newPage(apiKey, model, instruction string) pageData {
	model = s.settings.ResolveModel(model)
	options := make([]modelOption, 0, len(s.settings.Models))
	for _, m := range s.settings.Models {
		options = append(options, modelOption{Name: m, Selected: m == model})
	}
	return pageData{
		ProviderLabel: providerLabel(s.settings.Provider),
		APIKey:        apiKey,
		Models:        options,
		Instruction:   instruction,
		Accept:        acceptList(s.settings.AllowedFormats),
		Previews:      map[string]*previewView{},
	}
}

func providerLabel(provider string) string {
	switch provider {
	case common.ProviderGemini:
		return "Google"
	case common.ProviderOpenAI:
		return "OpenAI"
	default:
		return provider
	}
}

// acceptList 生成 <input accept> 的扩展名列表，jpeg 同时接受 .jpg
func acceptList(formats []string) string {
	var exts []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "jpeg", "jpg":
			exts = append(exts, ".jpg", ".jpeg")
		case "":
		default:
			exts = append(exts, "."+f)
		}
	}
	return strings.Join(dedupe(exts), ",")
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
