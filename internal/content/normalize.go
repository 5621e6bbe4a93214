package content

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ErrEmpty is returned when nothing analyzable is left after normalization
var ErrEmpty = errors.New("content is empty")

var (
	markupPattern     = regexp.MustCompile(`(?i)<\s*(html|body|p|div|span|article|br|a|h[1-6]|script|style|li|table)\b[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalizer turns pasted text or article HTML into prompt-ready plain text
type Normalizer struct {
	maxChars int
}

// NewNormalizer creates a normalizer. maxChars <= 0 disables truncation.
func NewNormalizer(maxChars int) *Normalizer {
	return &Normalizer{maxChars: maxChars}
}

// Normalize trims input, strips markup when present and caps the length
func (n *Normalizer) Normalize(input string) (string, error) {
	text := strings.TrimSpace(input)
	if LooksLikeHTML(text) {
		visible, err := VisibleText(text)
		if err != nil {
			return "", err
		}
		text = visible
	}

	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	if text == "" {
		return "", ErrEmpty
	}
	return truncate(text, n.maxChars), nil
}

// LooksLikeHTML reports whether text carries common HTML elements
func LooksLikeHTML(text string) bool {
	return markupPattern.MatchString(text)
}

// VisibleText extracts text nodes from HTML, skipping scripts and styles
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

// truncate cuts text to at most max runes, preferring a word boundary
func truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
