// Package dom is an in-memory HTML document that records its own mutations
// and delivers them, batched, to observers. It stands in for the browser DOM
// when the site is pre-rendered ahead of time and in tests.
//
// All reads and writes go through the Document so they are serialised by a
// single mutex, the Go equivalent of the browser's single event loop.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/idgen"
)

// ErrNotFound is returned when a lookup by ID or selector matches nothing.
var ErrNotFound = errors.New("dom: element not found")

// Document owns a parsed HTML tree and its observers.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	subs   []*Subscription
	url    string
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithURL sets the page URL reported in every delivered batch.
func WithURL(u string) Option {
	return func(d *Document) { d.url = u }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithIDGenerator overrides the batch ID generator (default UUIDv7).
func WithIDGenerator(gen idgen.Generator) Option {
	return func(d *Document) { d.newID = gen }
}

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := &Document{
		root:   root,
		newID:  idgen.Default,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// URL returns the page URL given at parse time.
func (d *Document) URL() string {
	return d.url
}

// Render serialises the whole document.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document to a string. Rendering errors yield "".
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// OuterHTML renders a single node and its subtree.
func (d *Document) OuterHTML(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderNode(n)
}

// --- reads ---

// QueryAll returns every element under root (inclusive) matching selector,
// in document order. A nil root means the whole document.
func (d *Document) QueryAll(root *html.Node, selector string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if root == nil {
		root = d.root
	}
	return querySelectorAll(root, selector)
}

// Query returns the first match of selector under root, or nil.
func (d *Document) Query(root *html.Node, selector string) *html.Node {
	matches := d.QueryAll(root, selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// ByID returns the element whose id attribute equals id. IDs may contain
// dots ("fundraiser.funds"), so this does not go through the selector parser.
func (d *Document) ByID(id string) (*html.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && getAttr(n, "id") == id
	}); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: #%s", ErrNotFound, id)
}

// Attr returns the value of attribute key on n.
func (d *Document) Attr(n *html.Node, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lookupAttr(n, key)
}

// HasClass reports whether n carries class in its class list.
func (d *Document) HasClass(n *html.Node, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return hasClass(n, class)
}

// Text returns the concatenated text content of n.
func (d *Document) Text(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return textContent(n)
}

// XPath returns the positional XPath of n, e.g. "/html/body/div[2]/span".
func (d *Document) XPath(n *html.Node) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return xpathOf(n)
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return isInclusiveAncestor(d.root, n)
}

// --- writes ---

// SetAttr sets attribute key to val, recording an attr mutation even when
// the value is unchanged (as setAttribute does).
func (d *Document) SetAttr(n *html.Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old, _ := lookupAttr(n, key)
	setAttr(n, key, val)
	d.queueLocked(mutation.Record{
		Op:       mutation.OpAttr,
		NodeType: int(html.ElementNode),
		Tag:      n.Data,
		Name:     key,
		Value:    val,
		OldValue: old,
		Target:   n,
	})
}

// RemoveAttr deletes attribute key. No record is produced when the
// attribute was absent.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old, ok := lookupAttr(n, key)
	if !ok {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			break
		}
	}
	d.queueLocked(mutation.Record{
		Op:       mutation.OpAttrDel,
		NodeType: int(html.ElementNode),
		Tag:      n.Data,
		Name:     key,
		OldValue: old,
		Target:   n,
	})
}

// SetText replaces every child of n with a single text node (none when text
// is empty), the way textContent assignment does.
func (d *Document) SetText(n *html.Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		d.removeLocked(n, c)
		c = next
	}
	if text == "" {
		return
	}
	d.appendLocked(n, &html.Node{Type: html.TextNode, Data: text})
}

// AppendChild appends child to parent, detaching it from any previous
// parent first.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if child.Parent != nil {
		d.removeLocked(child.Parent, child)
	}
	d.appendLocked(parent, child)
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(parent, child)
}

// Clone deep-copies n into a detached subtree. Mutations on the copy are
// not observed until it is inserted into the document.
func (d *Document) Clone(n *html.Node) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneNode(n)
}

// ParseFragment parses markup in the context of a <body> element and
// returns the detached top-level nodes.
func (d *Document) ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

func (d *Document) appendLocked(parent, child *html.Node) {
	parent.AppendChild(child)
	d.queueLocked(mutation.Record{
		Op:       mutation.OpInsert,
		NodeType: int(child.Type),
		Tag:      child.Data,
		Target:   parent,
		Added:    []*html.Node{child},
	})
}

func (d *Document) removeLocked(parent, child *html.Node) {
	// XPath must be computed while the child is still attached.
	rec := mutation.Record{
		Op:       mutation.OpRemove,
		NodeType: int(child.Type),
		Tag:      child.Data,
		Target:   parent,
	}
	if d.wantedLocked(rec) {
		rec.XPath = xpathOf(child)
	}
	parent.RemoveChild(child)
	d.queueLocked(rec)
}

// --- tree helpers (callers hold d.mu) ---

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, match); n != nil {
			return n
		}
	}
	return nil
}

func isInclusiveAncestor(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
