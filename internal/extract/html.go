package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line in the visible text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "dd": true, "table": true, "ul": true, "ol": true, "header": true, "footer": true,
}

// ParseHTMLPairs finds labelled values in an HTML document: two-cell table
// rows, definition list terms and "label: value" lines of visible text
func ParseHTMLPairs(content string) ([]LabeledValue, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var pairs []LabeledValue
	pairs = append(pairs, tablePairs(doc)...)
	pairs = append(pairs, definitionPairs(doc)...)
	pairs = append(pairs, ParseLabelLines(VisibleText(doc))...)
	return pairs, nil
}

// VisibleText extracts text nodes, one line per block element, skipping
// scripts and styles
func VisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return buf.String()
}

// NodeText returns the collapsed text content of a node
func NodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// FindAll finds all nodes matching a predicate
func FindAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if predicate(n) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func tablePairs(doc *html.Node) []LabeledValue {
	var pairs []LabeledValue
	for _, row := range FindAll(doc, isElement("tr")) {
		var cells []*html.Node
		for c := row.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, c)
			}
		}
		if len(cells) != 2 {
			continue
		}
		label := strings.TrimSuffix(NodeText(cells[0]), ":")
		value := NodeText(cells[1])
		if label != "" && value != "" {
			pairs = append(pairs, LabeledValue{Label: label, Value: value})
		}
	}
	return pairs
}

func definitionPairs(doc *html.Node) []LabeledValue {
	var pairs []LabeledValue
	for _, list := range FindAll(doc, isElement("dl")) {
		var term string
		for c := list.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "dt":
				term = strings.TrimSuffix(NodeText(c), ":")
			case "dd":
				if value := NodeText(c); term != "" && value != "" {
					pairs = append(pairs, LabeledValue{Label: term, Value: value})
				}
				term = ""
			}
		}
	}
	return pairs
}
