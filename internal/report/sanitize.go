package report

import (
	"fmt"
	"html"
	"strings"
)

// allowedTags are the rich-text elements passed through to generated HTML.
// Anything else is dropped, and script/style bodies are removed entirely.
var allowedTags = map[string]bool{
	"p": true, "br": true, "div": true, "span": true,
	"strong": true, "b": true, "em": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "blockquote": true,
	"ul": true, "ol": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"a": true, "hr": true,
}

var dropContentTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
}

// SanitizeHTML rewrites stored rich text so it is safe to embed in the
// generated report: unknown elements are removed, event-handler attributes
// and javascript: links are stripped, and script/style bodies disappear.
func SanitizeHTML(input string) string {
	var b strings.Builder
	i := 0
	for i < len(input) {
		if input[i] != '<' {
			next := strings.IndexByte(input[i:], '<')
			if next < 0 {
				b.WriteString(input[i:])
				break
			}
			b.WriteString(input[i : i+next])
			i += next
			continue
		}
		end := strings.IndexByte(input[i:], '>')
		if end < 0 {
			// Unterminated tag: escape the remainder as text.
			b.WriteString(html.EscapeString(input[i:]))
			break
		}
		tag := input[i : i+end+1]
		i += end + 1

		name, closing := tagName(tag)
		if name == "" {
			continue
		}
		if dropContentTags[name] {
			if !closing {
				i = skipTagBody(input, i, name)
			}
			continue
		}
		if !allowedTags[name] {
			continue
		}
		if closing {
			fmt.Fprintf(&b, "</%s>", name)
			continue
		}
		b.WriteString(rebuildTag(name, tag))
	}
	return b.String()
}

// PlainText strips all markup from stored rich text, collapsing block
// boundaries into single spaces and decoding entities.
func PlainText(input string) string {
	var b strings.Builder
	i := 0
	for i < len(input) {
		if input[i] != '<' {
			next := strings.IndexByte(input[i:], '<')
			if next < 0 {
				b.WriteString(input[i:])
				break
			}
			b.WriteString(input[i : i+next])
			i += next
			continue
		}
		end := strings.IndexByte(input[i:], '>')
		if end < 0 {
			b.WriteString(input[i:])
			break
		}
		name, closing := tagName(input[i : i+end+1])
		i += end + 1
		b.WriteByte(' ')
		if dropContentTags[name] && !closing {
			i = skipTagBody(input, i, name)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// tagName extracts the lowercased element name from a raw tag and reports
// whether it is a closing tag. Comments and directives yield "".
func tagName(tag string) (string, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	inner = strings.TrimSpace(inner)
	if inner == "" || inner[0] == '!' || inner[0] == '?' {
		return "", false
	}
	closing := false
	if inner[0] == '/' {
		closing = true
		inner = strings.TrimSpace(inner[1:])
	}
	nameEnd := len(inner)
	for idx, r := range inner {
		if r == ' ' || r == '\t' || r == '\n' || r == '/' {
			nameEnd = idx
			break
		}
	}
	return strings.ToLower(inner[:nameEnd]), closing
}

// skipTagBody advances past everything up to and including the matching
// close tag; used for script-like elements whose body must not survive.
func skipTagBody(input string, from int, name string) int {
	lower := strings.ToLower(input)
	closer := "</" + name
	idx := strings.Index(lower[from:], closer)
	if idx < 0 {
		return len(input)
	}
	end := strings.IndexByte(input[from+idx:], '>')
	if end < 0 {
		return len(input)
	}
	return from + idx + end + 1
}

// rebuildTag re-emits an allowed open tag keeping only the href attribute,
// and only when it is not a javascript: link.
func rebuildTag(name, tag string) string {
	if name != "a" {
		return "<" + name + ">"
	}
	href := attributeValue(tag, "href")
	cleaned := strings.ToLower(strings.TrimSpace(href))
	cleaned = strings.Map(func(r rune) rune {
		if r < ' ' {
			return -1
		}
		return r
	}, cleaned)
	if href == "" || strings.HasPrefix(cleaned, "javascript:") || strings.HasPrefix(cleaned, "data:") {
		return "<a>"
	}
	return fmt.Sprintf("<a href=\"%s\">", html.EscapeString(href))
}

func attributeValue(tag, name string) string {
	lower := strings.ToLower(tag)
	idx := strings.Index(lower, name+"=")
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len(name)+1:]
	if rest == "" {
		return ""
	}
	switch rest[0] {
	case '"', '\'':
		quote := rest[0]
		end := strings.IndexByte(rest[1:], quote)
		if end < 0 {
			return ""
		}
		return rest[1 : 1+end]
	default:
		end := strings.IndexAny(rest, " \t\n>")
		if end < 0 {
			return rest
		}
		return rest[:end]
	}
}
