package vector

import (
	"strings"
)

// ChunkConfig controls markdown splitting. Sizes are in tokens as measured
// by Length.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChunkSize int
	Separators   []string
	Length       LengthFunc
}

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n## ", "\n### ", "\n#### ", "\n\n", ". ", " ", ""}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    900,
		ChunkOverlap: 120,
		MaxChunkSize: 1200,
		Separators:   DefaultSeparators,
		Length:       TokenLength(),
	}
}

func (c ChunkConfig) withDefaults() ChunkConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 900
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 0
	}
	if c.MaxChunkSize < c.ChunkSize {
		c.MaxChunkSize = c.ChunkSize
	}
	if len(c.Separators) == 0 {
		c.Separators = DefaultSeparators
	}
	if c.Length == nil {
		c.Length = ApproxTokens
	}
	return c
}

// Section is the text under one heading path.
type Section struct {
	Content  string
	Headings []string
}

// Chunk is one piece of a section.
type Chunk struct {
	Content  string
	Headings []string
}

// SplitByHeadings cuts markdown at level 2 and 3 headings. Heading lines are
// dropped from the content and kept as the section's heading path. Headings
// inside fenced code are ignored.
func SplitByHeadings(markdown string) []Section {
	var (
		sections []Section
		h2, h3   string
		buf      []string
		inFence  bool
	)
	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if content == "" {
			return
		}
		var path []string
		if h2 != "" {
			path = append(path, h2)
		}
		if h3 != "" {
			path = append(path, h3)
		}
		sections = append(sections, Section{Content: content, Headings: path})
	}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			switch {
			case strings.HasPrefix(trimmed, "## "):
				flush()
				h2, h3 = strings.TrimSpace(trimmed[3:]), ""
				continue
			case strings.HasPrefix(trimmed, "### "):
				flush()
				h3 = strings.TrimSpace(trimmed[4:])
				continue
			}
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

// ChunkMarkdown splits by headings, then splits each section recursively.
func ChunkMarkdown(markdown string, cfg ChunkConfig) []Chunk {
	cfg = cfg.withDefaults()
	var out []Chunk
	for _, s := range SplitByHeadings(markdown) {
		for _, piece := range cfg.SplitText(s.Content) {
			out = append(out, Chunk{Content: piece, Headings: s.Headings})
		}
	}
	return out
}

// SplitText splits text with the separator list, merging pieces up to
// ChunkSize with ChunkOverlap of trailing context, then force-splits
// anything still longer than MaxChunkSize.
func (c ChunkConfig) SplitText(text string) []string {
	c = c.withDefaults()
	var out []string
	for _, piece := range c.split(text, c.Separators) {
		if c.Length(piece) > c.MaxChunkSize {
			out = append(out, c.forceSplit(piece)...)
			continue
		}
		out = append(out, piece)
	}
	return out
}

func (c ChunkConfig) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep, rest = s, separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeep(text, sep) {
		if c.Length(piece) < c.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// splitKeep splits before every occurrence of sep, keeping sep at the start
// of the following piece. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c ChunkConfig) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		lengths []int
		total   int
	)
	for _, p := range pieces {
		n := c.Length(p)
		if total+n > c.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.ChunkOverlap || (total+n > c.ChunkSize && total > 0) {
				total -= lengths[0]
				current, lengths = current[1:], lengths[1:]
			}
		}
		current = append(current, p)
		lengths = append(lengths, n)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// forceSplit cuts text into windows of at most MaxChunkSize tokens.
func (c ChunkConfig) forceSplit(text string) []string {
	var out []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := len(runes)
		for n > 1 && c.Length(string(runes[:n])) > c.MaxChunkSize {
			n = n * c.MaxChunkSize / c.Length(string(runes[:n]))
			if n < 1 {
				n = 1
			}
		}
		if piece := strings.TrimSpace(string(runes[:n])); piece != "" {
			out = append(out, piece)
		}
		runes = runes[n:]
	}
	return out
}
