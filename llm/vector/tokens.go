package vector

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// LengthFunc measures text in tokens.
type LengthFunc func(string) int

const tokenEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// TokenLength counts cl100k_base tokens. When the encoding cannot be loaded
// (the BPE file is fetched on first use) it falls back to ApproxTokens.
func TokenLength() LengthFunc {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(tokenEncoding)
	})
	if encErr != nil || enc == nil {
		return ApproxTokens
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}
}

// TokenEncodingError reports why TokenLength fell back, if it did.
func TokenEncodingError() error {
	TokenLength()
	return encErr
}

// ApproxTokens estimates four characters per token.
func ApproxTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
