package dom

import (
	"fmt"

	"golang.org/x/net/html"
)

// xpathOf computes a positional XPath for n, e.g. "/html/body/div[2]/span".
// Sibling indexes are only emitted when several siblings share the tag.
// Detached subtrees yield a path relative to their own root.
func xpathOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.DocumentNode:
		return ""
	case html.DoctypeNode:
		return xpathOf(n.Parent)
	case html.TextNode:
		return xpathOf(n.Parent) + "/text()"
	case html.CommentNode:
		return xpathOf(n.Parent) + "/comment()"
	}

	parentPath := xpathOf(n.Parent)
	if n.Parent == nil {
		return "/" + n.Data
	}

	idx, total := 0, 0
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		total++
		if c == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s/%s[%d]", parentPath, n.Data, idx)
	}
	return parentPath + "/" + n.Data
}
