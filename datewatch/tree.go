package datewatch

import (
	"context"
	"time"
)

// Element is the slice of a DOM element the renderer needs.
type Element interface {
	Attr(name string) (string, bool)
	HasClass(class string) bool
	SetText(text string) error
	SetAttr(name, value string) error
	// String identifies the element in logs (an XPath for both trees).
	String() string
}

// ChangeKind says what a Change reports.
type ChangeKind int

const (
	// AttributeChanged: Attr on Target was set or removed.
	AttributeChanged ChangeKind = iota + 1
	// SubtreeAdded: Added were inserted under Target.
	SubtreeAdded
)

func (k ChangeKind) String() string {
	switch k {
	case AttributeChanged:
		return "attribute_changed"
	case SubtreeAdded:
		return "subtree_added"
	}
	return "unknown"
}

// Change is one entry of a delivered batch.
type Change struct {
	Kind   ChangeKind
	Target Element
	Attr   string
	Added  []Element
}

// WatchOptions configures a Tree watch.
type WatchOptions struct {
	// Attribute is the only attribute whose changes are reported.
	Attribute string
	// Debounce coalesces changes for this long before delivery. Zero
	// delivers on the next turn.
	Debounce time.Duration
	// MaxBuffer delivers early once this many changes are pending.
	MaxBuffer int
}

// Tree is the document the renderer scans and watches. Implementations
// deliver batches in mutation order and never run fn concurrently with
// itself.
type Tree interface {
	// FindAll returns the elements carrying class in root's inclusive
	// subtree, in document order. A nil root means the whole document.
	FindAll(root Element, class string) ([]Element, error)
	// Watch reports attribute changes on opts.Attribute and subtree
	// insertions anywhere in the document until stop is called.
	Watch(ctx context.Context, opts WatchOptions, fn func([]Change)) (stop func(), err error)
}
