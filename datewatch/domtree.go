package datewatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/creatorsforacause/dom"
	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/dom/sink"
)

// TreeOption configures DocumentTree.
type TreeOption func(*docTree)

// WithTrace copies every batch the watch receives to s before it is
// converted to Changes.
func WithTrace(s sink.Sink) TreeOption {
	return func(t *docTree) { t.trace = s }
}

// WithTreeLogger sets the logger used for trace failures.
func WithTreeLogger(l *slog.Logger) TreeOption {
	return func(t *docTree) { t.logger = l }
}

type docTree struct {
	doc    *dom.Document
	trace  sink.Sink
	logger *slog.Logger
}

// DocumentTree adapts an in-memory document to Tree.
func DocumentTree(doc *dom.Document, opts ...TreeOption) Tree {
	t := &docTree{doc: doc, logger: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *docTree) elem(n *html.Node) Element {
	return &docElement{doc: t.doc, n: n}
}

func (t *docTree) FindAll(root Element, class string) ([]Element, error) {
	var rootNode *html.Node
	if root != nil {
		de, ok := root.(*docElement)
		if !ok {
			return nil, fmt.Errorf("datewatch: element %s does not belong to this document", root)
		}
		rootNode = de.n
	}
	nodes := t.doc.QueryAll(rootNode, "."+class)
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = t.elem(n)
	}
	return out, nil
}

func (t *docTree) Watch(ctx context.Context, opts WatchOptions, fn func([]Change)) (func(), error) {
	mopts := mutation.Options{
		Attributes:      true,
		AttributeFilter: []string{opts.Attribute},
		ChildList:       true,
		Subtree:         true,
	}
	sub := t.doc.Observe(nil, mopts, func(b mutation.Batch) {
		if t.trace != nil {
			if err := t.trace.Send(ctx, b); err != nil {
				t.logger.Warn("datewatch: trace batch", "batch", b.ID, "error", err)
			}
		}
		if changes := t.changes(b.Records); len(changes) > 0 {
			fn(changes)
		}
	}, dom.WithDebounce(opts.Debounce, opts.MaxBuffer))
	return sub.Disconnect, nil
}

// changes converts records to Changes. Removals carry nothing to render
// and inserted non-element nodes cannot hold date elements.
func (t *docTree) changes(records []mutation.Record) []Change {
	var out []Change
	for _, rec := range records {
		switch {
		case rec.Op.IsAttribute():
			out = append(out, Change{Kind: AttributeChanged, Target: t.elem(rec.Target), Attr: rec.Name})
		case rec.Op == mutation.OpInsert:
			var added []Element
			for _, n := range rec.Added {
				if n.Type == html.ElementNode {
					added = append(added, t.elem(n))
				}
			}
			if len(added) > 0 {
				out = append(out, Change{Kind: SubtreeAdded, Target: t.elem(rec.Target), Added: added})
			}
		}
	}
	return out
}

type docElement struct {
	doc *dom.Document
	n   *html.Node
}

func (e *docElement) Attr(name string) (string, bool) { return e.doc.Attr(e.n, name) }
func (e *docElement) HasClass(class string) bool      { return e.doc.HasClass(e.n, class) }
func (e *docElement) String() string                  { return e.doc.XPath(e.n) }

func (e *docElement) SetText(text string) error {
	e.doc.SetText(e.n, text)
	return nil
}

func (e *docElement) SetAttr(name, value string) error {
	e.doc.SetAttr(e.n, name, value)
	return nil
}
