package read

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// readHTML strips tags and script/style content, collapsing the remaining
// text nodes into whitespace-separated plain text.
func readHTML(data []byte) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return &Result{Text: strings.TrimSpace(b.String()), FileType: "html", Metadata: map[string]string{}}, nil
}
