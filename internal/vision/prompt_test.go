package vision

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		wantExtra   bool
	}{
		{name: "empty", instruction: "", wantExtra: false},
		{name: "whitespace only", instruction: " \n\t ", wantExtra: false},
		{name: "user instruction", instruction: "ignore the red one", wantExtra: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildPrompt(tt.instruction)
			if !strings.HasPrefix(got, BasePrompt) {
				t.Fatalf("prompt does not start with the fixed instruction: %q", got)
			}
			hasExtra := strings.Contains(got, "Additional instructions")
			if hasExtra != tt.wantExtra {
				t.Errorf("additional section present = %v, want %v", hasExtra, tt.wantExtra)
			}
			if tt.wantExtra && !strings.HasSuffix(got, tt.instruction) {
				t.Errorf("prompt %q does not end with %q", got, tt.instruction)
			}
			if !tt.wantExtra && got != BasePrompt {
				t.Errorf("prompt = %q, want the fixed instruction only", got)
			}
		})
	}
}

func TestCallErrorUnwrap(t *testing.T) {
	cause := errors.New("quota exceeded")
	var err error = &CallError{Provider: "gemini", Model: "gemini-2.5-flash", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the wrapped cause")
	}
	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Model != "gemini-2.5-flash" {
		t.Errorf("errors.As = %v", callErr)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("Error() = %q", err.Error())
	}
}
