package whatsapp

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

// Normalize rewrites markdown-ish model output as WhatsApp text: bold
// becomes *b*, italics _i_, lists and headings plain lines. Text with
// no markdown markers passes through untouched.
func Normalize(text string) string {
	if !looksLikeMarkdown(text) {
		return text
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return text
	}

	doc, err := html.Parse(&buf)
	if err != nil {
		return text
	}

	var out strings.Builder
	flatten(doc, &out)

	result := strings.TrimSpace(collapseBlankLines(trimLines(out.String())))
	if result == "" {
		return text
	}
	return result
}

// markdownMarkers are the syntax fragments worth paying a render for.
// Single asterisks, underscores and numbered lines stay: WhatsApp
// already understands the former, and numbered option lists must reach
// the user exactly as the tools emitted them.
var markdownMarkers = []string{"**", "__", "](", "```", "# ", "## ", "### "}

func looksLikeMarkdown(text string) bool {
	for _, m := range markdownMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func flatten(n *html.Node, out *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		// Newline-only text nodes are the renderer's separators
		// between block tags, not content. A plain space keeps inline
		// siblings apart; trimLines sweeps the rest.
		if strings.ContainsRune(n.Data, '\n') && strings.TrimSpace(n.Data) == "" {
			out.WriteString(" ")
			return
		}
		out.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "strong", "b":
			out.WriteString("*")
			flattenChildren(n, out)
			out.WriteString("*")
			return
		case "em", "i":
			out.WriteString("_")
			flattenChildren(n, out)
			out.WriteString("_")
			return
		case "li":
			out.WriteString("- ")
			flattenChildren(n, out)
			out.WriteString("\n")
			return
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			flattenChildren(n, out)
			out.WriteString("\n\n")
			return
		case "br":
			out.WriteString("\n")
			return
		case "ul", "ol", "blockquote":
			flattenChildren(n, out)
			out.WriteString("\n")
			return
		case "a":
			flattenChildren(n, out)
			for _, attr := range n.Attr {
				if attr.Key == "href" && !strings.Contains(textContent(n), attr.Val) {
					out.WriteString(" (" + attr.Val + ")")
					break
				}
			}
			return
		case "code", "pre":
			flattenChildren(n, out)
			return
		}
	}
	flattenChildren(n, out)
}

func flattenChildren(n *html.Node, out *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, out)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		} else {
			b.WriteString(textContent(c))
		}
	}
	return b.String()
}

// trimLines strips leading and trailing spaces from every line.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// collapseBlankLines squeezes runs of three or more newlines down to a
// paragraph break.
func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
