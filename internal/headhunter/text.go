package headhunter

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed. hh.ru descriptions and search snippets are HTML.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Keep words from adjacent block elements apart.
			name, _ := tokenizer.TagName()
			if isBlock(string(name)) {
				b.WriteString(" ")
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "li", "ul", "ol", "div", "h1", "h2", "h3", "h4", "tr", "td":
		return true
	default:
		return false
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type textBuilder struct {
	strings.Builder
}

func (b *textBuilder) line(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(s)
}

func (b *textBuilder) field(name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.line(name + ": " + strings.TrimSpace(value))
}
