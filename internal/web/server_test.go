package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gemini-vision-explorer/internal/analyzer"
	"gemini-vision-explorer/internal/vision"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLocator struct {
	result string
	err    error
	calls  []vision.LocateRequest
}

func (s *stubLocator) LocateObject(ctx context.Context, req vision.LocateRequest) (string, error) {
	s.calls = append(s.calls, req)
	return s.result, s.err
}

func newTestServer(stub *stubLocator, defaultKey string, maxBytes int64) *Server {
	svc := analyzer.NewService(stub, analyzer.Settings{
		Provider:       "gemini",
		DefaultAPIKey:  defaultKey,
		Models:         []string{"gemini-2.5-flash", "gemini-2.5-pro"},
		AllowedFormats: []string{"jpeg", "png"},
	})
	return NewServer(svc, "127.0.0.1:0", maxBytes)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multipartBody 构造表单请求，files 中值为 nil 的字段不会被添加
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for field, data := range files {
		if data == nil {
			continue
		}
		fw, err := w.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, srv *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexPrefillsDefaultKey(t *testing.T) {
	srv := newTestServer(&stubLocator{}, "env-default-key", 1<<20)

	rec := do(t, srv, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`type="password"`,
		`value="env-default-key"`,
		`<option value="gemini-2.5-flash" selected>`,
		`accept=".jpg,.jpeg,.png"`,
		"Analyze Images",
		"Analyzing...",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestAnalyzeFormOutcomes(t *testing.T) {
	img := testPNG(t)

	tests := []struct {
		name      string
		fields    map[string]string
		files     map[string][]byte
		wantText  []string
		wantCalls int
	}{
		{
			name:     "missing key",
			fields:   map[string]string{"api_key": ""},
			files:    map[string][]byte{"target": img, "scene": img},
			wantText: []string{`class="banner error"`, analyzer.MessageMissingCredential},
		},
		{
			name:     "missing scene",
			fields:   map[string]string{"api_key": "abc"},
			files:    map[string][]byte{"target": img},
			wantText: []string{`class="banner warning"`, analyzer.MessageMissingInput},
		},
		{
			name:   "success",
			fields: map[string]string{"api_key": "abc", "model": "gemini-2.5-pro", "instruction": "ignore the red one"},
			files:  map[string][]byte{"target": img, "scene": img},
			wantText: []string{
				`class="banner success"`,
				analyzer.MessageSuccess,
				`<code class="language-json">{&#34;found&#34;: true}</code>`,
				`<option value="gemini-2.5-pro" selected>`,
				"ignore the red one",
				`src="data:image/png;base64,`,
				"Scene to Analyze",
			},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubLocator{result: `{"found": true}`}
			srv := newTestServer(stub, "", 1<<20)

			body, ct := multipartBody(t, tt.fields, tt.files)
			rec := do(t, srv, http.MethodPost, "/analyze", body, ct)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("page missing %q", want)
				}
			}
			if len(stub.calls) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(stub.calls), tt.wantCalls)
			}
		})
	}
}

func TestAnalyzeFormFailureShowsFriendlyMessage(t *testing.T) {
	stub := &stubLocator{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED internal-trace-id")}
	srv := newTestServer(stub, "", 1<<20)

	img := testPNG(t)
	body, ct := multipartBody(t, map[string]string{"api_key": "abc"}, map[string][]byte{"target": img, "scene": img})
	rec := do(t, srv, http.MethodPost, "/analyze", body, ct)

	page := rec.Body.String()
	if !strings.Contains(page, `class="banner error"`) {
		t.Error("failure banner not rendered")
	}
	if strings.Contains(page, "internal-trace-id") {
		t.Error("raw error leaked into the page")
	}
	if strings.Contains(page, "language-json") {
		t.Error("result block rendered on failure")
	}
}

func TestAnalyzeAPI(t *testing.T) {
	img := testPNG(t)

	tests := []struct {
		name       string
		stub       *stubLocator
		fields     map[string]string
		files      map[string][]byte
		wantStatus int
		wantKind   string
	}{
		{
			name:       "missing key",
			stub:       &stubLocator{},
			fields:     map[string]string{},
			files:      map[string][]byte{},
			wantStatus: http.StatusBadRequest,
			wantKind:   string(analyzer.KindMissingCredential),
		},
		{
			name:       "missing images",
			stub:       &stubLocator{},
			fields:     map[string]string{"api_key": "abc"},
			files:      map[string][]byte{},
			wantStatus: http.StatusBadRequest,
			wantKind:   string(analyzer.KindMissingInput),
		},
		{
			name:       "call failure",
			stub:       &stubLocator{err: errors.New("boom")},
			fields:     map[string]string{"api_key": "abc"},
			files:      map[string][]byte{"target": img, "scene": img},
			wantStatus: http.StatusBadGateway,
			wantKind:   string(analyzer.KindCallFailure),
		},
		{
			name:       "success",
			stub:       &stubLocator{result: "raw model text"},
			fields:     map[string]string{"api_key": "abc"},
			files:      map[string][]byte{"target": img, "scene": img},
			wantStatus: http.StatusOK,
			wantKind:   string(analyzer.KindSuccess),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.stub, "", 1<<20)
			body, ct := multipartBody(t, tt.fields, tt.files)
			rec := do(t, srv, http.MethodPost, "/api/analyze", body, ct)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp AnalyzeResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
			}
			if resp.Success != (tt.wantKind == string(analyzer.KindSuccess)) {
				t.Errorf("success = %v", resp.Success)
			}
			if resp.Success && resp.Result != "raw model text" {
				t.Errorf("result = %q", resp.Result)
			}
		})
	}
}

func TestAnalyzeAPIUploadTooLarge(t *testing.T) {
	stub := &stubLocator{result: "unused"}
	srv := newTestServer(stub, "", 1024)

	big := bytes.Repeat([]byte{0xAB}, 4096)
	body, ct := multipartBody(t, map[string]string{"api_key": "abc"}, map[string][]byte{"target": big, "scene": big})
	rec := do(t, srv, http.MethodPost, "/api/analyze", body, ct)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if len(stub.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(stub.calls))
	}
}

func TestModels(t *testing.T) {
	srv := newTestServer(&stubLocator{}, "", 1<<20)
	rec := do(t, srv, http.MethodGet, "/api/models", nil, "")

	var resp ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Provider != "gemini" || resp.Default != "gemini-2.5-flash" || len(resp.Models) != 2 {
		t.Errorf("models response = %+v", resp)
	}
}

func TestAcceptList(t *testing.T) {
	if got, want := acceptList([]string{"JPG", "jpeg", "png", "webp"}), ".jpg,.jpeg,.png,.webp"; got != want {
		t.Errorf("acceptList = %q, want %q", got, want)
	}
}
