package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Missing("chapter_name"), ErrValidation},
		{"encoding", &EncodingError{File: "a.jpg", Err: cause}, ErrEncoding},
		{"publish", &PublishError{Reason: "no id returned"}, ErrPublish},
		{"conversion", NewConversionError(cause, "bad input", "{}"), ErrConversion},
		{"external", External("notion", cause), ErrExternalCall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
		})
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	var ve *ValidationError
	if !errors.As(Missing("resource_tag"), &ve) || ve.Field != "resource_tag" {
		t.Fatalf("expected ValidationError for resource_tag, got %v", ve)
	}
}

func TestConversionErrorTruncatesStdout(t *testing.T) {
	e := NewConversionError(errors.New("decode"), "stderr text", strings.Repeat("x", 6000))
	if len(e.Stdout) != 5000 {
		t.Errorf("stdout len = %d, want 5000", len(e.Stdout))
	}
	if !strings.Contains(e.Error(), "stderr text") {
		t.Errorf("stderr missing from message: %s", e.Error())
	}
}

func TestExternalDoesNotDoubleWrap(t *testing.T) {
	inner := External("llm", errors.New("timeout"))
	outer := External("pipeline", inner)
	if outer != inner {
		t.Errorf("External re-wrapped an ExternalCallFailure")
	}
	if External("x", nil) != nil {
		t.Errorf("External(nil) should be nil")
	}
}

func TestFileBytes(t *testing.T) {
	f := File{Name: "a.png", Data: []byte("abc")}
	b, err := f.Bytes()
	if err != nil || string(b) != "abc" {
		t.Fatalf("Bytes() = %q, %v", b, err)
	}
	if _, err := (File{Name: "empty"}).Bytes(); err == nil {
		t.Fatal("expected error for file without content")
	}
}
