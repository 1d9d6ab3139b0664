package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*")
)

// StripCodeFence removes optional markdown code-fence markers that models
// wrap around JSON answers.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// CleanText decodes HTML entities, squeezes whitespace and caps the result
// at maxRunes (0 means no cap). Used on user-authored text before it is
// placed into a prompt.
func CleanText(input string, maxRunes int) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	decoded = strings.TrimSpace(decoded)
	if maxRunes > 0 {
		if runes := []rune(decoded); len(runes) > maxRunes {
			decoded = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return decoded
}

// NormalizeKeywords trims and squeezes each keyword, drops empty entries and
// case-insensitive duplicates (first spelling wins) and keeps at most limit
// entries. limit <= 0 keeps everything.
func NormalizeKeywords(raw []string, limit int) []string {
	cleaned := lo.FilterMap(raw, func(k string, _ int) (string, bool) {
		k = strings.TrimSpace(whitespace.ReplaceAllString(k, " "))
		return k, k != ""
	})
	out := lo.UniqBy(cleaned, strings.ToLower)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BuildEventID hashes the stable identity of a trigger so that redelivered
// events without an explicit id collapse onto the same key.
func BuildEventID(parts ...string) string {
	s := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(s[:])
}
