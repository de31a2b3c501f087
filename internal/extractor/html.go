package extractor

import (
	"io"
	"regexp"
	"strings"
)

const maxFetchBytes = 16 << 20

var (
	scriptRegex = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRegex    = regexp.MustCompile(`(?s)<[^>]+>`)
	spaceRegex  = regexp.MustCompile(`[ \t]+`)
	blankRegex  = regexp.MustCompile(`\n{3,}`)
)

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxFetchBytes))
}

// stripHTML reduces a fetched page to its visible text. Good enough for
// crawled reference pages; this is not a sanitizer.
func stripHTML(input string) string {
	text := scriptRegex.ReplaceAllString(input, " ")
	text = tagRegex.ReplaceAllString(text, "\n")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = spaceRegex.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
