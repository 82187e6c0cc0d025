package scrape

import "strings"

// firstHeading returns the text of the first "# " heading in the markdown,
// or "".
func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// firstParagraph returns the first paragraph of the markdown that is neither
// a heading nor a code fence, with internal line breaks collapsed to spaces.
func firstParagraph(markdown string) string {
	for _, block := range strings.Split(strings.TrimSpace(markdown), "\n\n") {
		paragraph := strings.TrimSpace(block)
		if paragraph == "" {
			continue
		}
		if isHeading(paragraph) || strings.HasPrefix(paragraph, "```") || strings.HasPrefix(paragraph, "~~~") {
			continue
		}
		lines := strings.Split(paragraph, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(line)
		}
		return strings.Join(lines, " ")
	}
	return ""
}

func isHeading(paragraph string) bool {
	trimmed := strings.TrimLeft(paragraph, "#")
	return trimmed != paragraph && strings.HasPrefix(trimmed, " ")
}
