package openai

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gemini-vision-explorer/internal/vision"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
		} `json:"content"`
	} `json:"messages"`
}

func TestLocateObject(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"{\"found\": false}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	result, err := c.LocateObject(t.Context(), vision.LocateRequest{
		APIKey:      "sk-test",
		Model:       "gpt-4o-mini",
		Target:      vision.Image{Data: []byte("target"), MIMEType: "image/png"},
		Scene:       vision.Image{Data: []byte("scene"), MIMEType: "image/jpeg"},
		Instruction: "ignore the red one",
	})
	if err != nil {
		t.Fatalf("LocateObject() error = %v", err)
	}
	if result != `{"found": false}` {
		t.Errorf("result = %q", result)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 1 {
		t.Fatalf("request = %+v", got)
	}

	var images []string
	var texts []string
	for _, part := range got.Messages[0].Content {
		switch part.Type {
		case "image_url":
			images = append(images, part.ImageURL.URL)
		case "text":
			texts = append(texts, part.Text)
		}
	}
	wantImages := []string{
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("target")),
		"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("scene")),
	}
	if len(images) != 2 || images[0] != wantImages[0] || images[1] != wantImages[1] {
		t.Errorf("images = %v, want %v", images, wantImages)
	}
	if len(texts) == 0 || texts[0] != vision.BuildPrompt("ignore the red one") {
		t.Errorf("first text part = %v", texts)
	}
}

func TestLocateObjectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	_, err := c.LocateObject(t.Context(), vision.LocateRequest{
		APIKey: "sk-test",
		Model:  "gpt-4o-mini",
	})

	var callErr *vision.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("error = %v, want *vision.CallError", err)
	}
	if callErr.Provider != "openai" {
		t.Errorf("provider = %q", callErr.Provider)
	}
}
