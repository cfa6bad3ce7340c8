package email

import "strings"

// wrapWidth is the column limit for reflowed plain-text paragraphs.
const wrapWidth = 72

// wrapParagraphs reflows each newline-delimited paragraph independently to
// wrapWidth columns. Empty paragraphs stay empty so that paragraph
// boundaries survive wrapping; paragraphs are never merged.
func wrapParagraphs(text string) string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, wrapWidth)...)
	}
	return strings.Join(lines, "\n")
}

// wrapParagraph greedily fills lines with whitespace-separated words. A word
// longer than the width gets a line of its own rather than being split.
func wrapParagraph(paragraph string, width int) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
