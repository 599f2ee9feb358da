package storage

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World!", "hello-world"},
		{"C++ & Python@2024", "c-python-2024"},
		{"", ""},
		{"!!!", ""},
		{"Café", "cafe"},
		{"  Hello  ", "hello"},
		{"Don't Panic", "dont-panic"},
		{"Физика", "fizika"},
		{"操作系统", "cao-zuo-xi-tong"},
		{"Straße", "strasse"},
		{"Ωmega", "omega"},
		{"snake_case", "snake-case"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalChapter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chapter 5: Foo", "chapter-05"},
		{"ch2", "chapter-02"},
		{"Introduction", "chapter-introduction"},
		{"Part 12 and 13", "chapter-12"},
		{"", "chapter-unknown"},
		{"???", "chapter-unknown"},
		{"Chapter 007", "chapter-07"},
		{"Chapter 0", "chapter-00"},
		{"Chapter 99999999999999999999", "chapter-99999999999999999999"},
	}
	for _, tt := range tests {
		if got := CanonicalChapter(tt.in); got != tt.want {
			t.Errorf("CanonicalChapter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrefix(t *testing.T) {
	got, err := Prefix("Operating Systems", "Chapter 3")
	if err != nil {
		t.Fatalf("Prefix() error = %v", err)
	}
	if got != "active/operating-systems/chapter-03/" {
		t.Errorf("Prefix() = %q", got)
	}
	got, err = Prefix("Физика", "Глава 2")
	if err != nil {
		t.Fatalf("Prefix() error = %v", err)
	}
	if got != "active/fizika/chapter-02/" {
		t.Errorf("Prefix() = %q", got)
	}
	if _, err := Prefix("@@@", "Chapter 3"); err == nil {
		t.Error("expected error for tag that slugs to empty")
	}
}

func TestSafeFilename(t *testing.T) {
	a := SafeFilename("My Notes.JPG", []byte("image-a"))
	b := SafeFilename("My Notes.JPG", []byte("image-b"))
	if !strings.HasPrefix(a, "my-notes-") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("SafeFilename = %q", a)
	}
	if len(a) != len("my-notes-")+16+len(".jpg") {
		t.Errorf("unexpected length for %q", a)
	}
	if a == b {
		t.Error("different content should produce different names")
	}
	if got := SafeFilename("???.png", []byte("x")); !strings.HasPrefix(got, "file-") {
		t.Errorf("empty stem should fall back to file, got %q", got)
	}
}

func TestDetectContentType(t *testing.T) {
	if got := DetectContentType("page.png", ""); got != "image/png" {
		t.Errorf("png = %q", got)
	}
	if got := DetectContentType("page.unknownext", ""); got != "application/octet-stream" {
		t.Errorf("unknown = %q", got)
	}
	if got := DetectContentType("noext", "image/jpeg"); got != "image/jpeg" {
		t.Errorf("fallback = %q", got)
	}
}
