package registry

import (
	"regexp"
	"strings"
)

var (
	// Label line: "Category: a, b" or "Categories: a, b" at line start.
	categoryLineRe = regexp.MustCompile(`(?i)^\s*categor(?:y|ies)\s*:\s*(.+)$`)
	// Inline bracketed annotation: "[category: a, b]" anywhere in the text.
	categoryInlineRe = regexp.MustCompile(`(?i)\[categor(?:y|ies)\s*:\s*([^\]]+)\]`)
)

// ExtractCategories parses documentation text for category annotations.
// Label lines and bracketed inline annotations are both recognized; matches
// across the whole text are merged, trimmed, lowercased and deduplicated
// preserving first-seen order. Text without annotations yields nil.
func ExtractCategories(doc string) []string {
	var out []string
	seen := make(map[string]struct{})

	appendTokens := func(list string) {
		for _, token := range strings.Split(list, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}

	for _, line := range strings.Split(doc, "\n") {
		if m := categoryLineRe.FindStringSubmatch(line); m != nil {
			appendTokens(m[1])
		}
	}
	for _, m := range categoryInlineRe.FindAllStringSubmatch(doc, -1) {
		appendTokens(m[1])
	}
	return out
}
