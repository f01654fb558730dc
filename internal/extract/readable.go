package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// minArticleChars is the text length an <article> or <main> element needs
// before it is preferred over the whole body.
const minArticleChars = 200

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Button:   true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Td:         true,
	atom.Th:         true,
	atom.Dd:         true,
	atom.Dt:         true,
	atom.Figcaption: true,
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Main:       true,
	atom.Br:         true,
	atom.Tr:         true,
}

// MainText returns the readable text of an HTML document: boilerplate
// elements are dropped, block elements become paragraphs separated by blank
// lines, and an <article> or <main> element is preferred when it holds
// enough text.
func MainText(document string) string {
	if strings.TrimSpace(document) == "" {
		return ""
	}
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return ""
	}

	for _, a := range []atom.Atom{atom.Article, atom.Main} {
		if n := findFirst(root, a); n != nil {
			if text := render(n); len(text) >= minArticleChars {
				return text
			}
		}
	}

	if body := findFirst(root, atom.Body); body != nil {
		return render(body)
	}
	return render(root)
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func render(n *html.Node) string {
	var paragraphs []string
	var current strings.Builder

	flush := func() {
		text := strings.Join(strings.Fields(current.String()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipped[n.DataAtom] || hidden(n) {
				return
			}
			if blocks[n.DataAtom] {
				flush()
				defer flush()
			}
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	flush()

	return strings.Join(paragraphs, "\n\n")
}

func hidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if attr.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}
