package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9]+`)
	firstNum   = regexp.MustCompile(`\d+`)
)

// Slugify transliterates s to ASCII, lowercases it and joins the remaining
// alphanumeric runs with single dashes. "Café" -> "cafe", "Физика" -> "fizika".
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	ascii := unidecode.Unidecode(folded)
	ascii = strings.NewReplacer("'", "", "\"", "").Replace(ascii)
	slug := disallowed.ReplaceAllString(strings.ToLower(ascii), "-")
	return strings.Trim(slug, "-")
}

// CanonicalChapter maps a free-form chapter name to a stable key segment.
// The first number wins ("Chapter 5: Foo" -> "chapter-05"); otherwise the slug
// is used; an empty result becomes "chapter-unknown".
func CanonicalChapter(name string) string {
	if name == "" {
		return "chapter-unknown"
	}
	if m := firstNum.FindString(name); m != "" {
		digits := strings.TrimLeft(m, "0")
		if len(digits) < 2 {
			digits = strings.Repeat("0", 2-len(digits)) + digits
		}
		return "chapter-" + digits
	}
	if slug := Slugify(name); slug != "" {
		return "chapter-" + slug
	}
	return "chapter-unknown"
}

// Prefix returns "active/<tag>/<chapter>/".
func Prefix(resourceTag, chapterName string) (string, error) {
	tag := Slugify(resourceTag)
	if tag == "" {
		return "", fmt.Errorf("resource tag %q is empty after sanitization", resourceTag)
	}
	return fmt.Sprintf("active/%s/%s/", tag, CanonicalChapter(chapterName)), nil
}

// SafeFilename returns "<slug(stem)>-<first 16 hex of sha256(data)><ext>".
func SafeFilename(name string, data []byte) string {
	ext := filepath.Ext(name)
	stem := Slugify(strings.TrimSuffix(filepath.Base(name), ext))
	if stem == "" {
		stem = "file"
	}
	sum := sha256.Sum256(data)
	return stem + "-" + hex.EncodeToString(sum[:])[:16] + strings.ToLower(ext)
}

// DetectContentType guesses a MIME type from the file extension.
func DetectContentType(name, fallback string) string {
	if fallback == "" {
		fallback = "application/octet-stream"
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		return fallback
	}
	// drop parameters such as "; charset=utf-8"
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
