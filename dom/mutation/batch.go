// Package mutation defines the structured change records delivered to
// document observers. Both the in-memory document and the live browser page
// emit these types, so sinks and tests can consume either source.
package mutation

import "golang.org/x/net/html"

// Op is the type of DOM mutation observed.
type Op string

const (
	OpInsert  Op = "insert"   // child node inserted (Added holds the inserted roots)
	OpRemove  Op = "remove"   // child node removed
	OpAttr    Op = "attr"     // attribute set or modified
	OpAttrDel Op = "attr_del" // attribute removed
)

// IsChildList reports whether op belongs to the childList category.
func (op Op) IsChildList() bool {
	return op == OpInsert || op == OpRemove
}

// IsAttribute reports whether op belongs to the attributes category.
func (op Op) IsAttribute() bool {
	return op == OpAttr || op == OpAttrDel
}

// Record is a single DOM mutation.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath"`
	NodeType int    `json:"node_type,omitempty"` // 1=element, 3=text, 8=comment
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`      // attribute name for attr/attr_del
	Value    string `json:"value,omitempty"`     // new value
	OldValue string `json:"old_value,omitempty"` // previous value
	HTML     string `json:"html,omitempty"`      // serialised subtree for insert

	// Target is the node whose attributes or children changed. Only set by
	// in-process sources; it never crosses a serialisation boundary.
	Target *html.Node `json:"-"`
	// Added holds the inserted subtree roots for OpInsert records.
	Added []*html.Node `json:"-"`
}

// Batch is the unit delivered to observers: every record queued during one
// delivery turn, in mutation order.
type Batch struct {
	ID        string   `json:"id"`      // UUIDv7
	PageURL   string   `json:"page_url,omitempty"`
	PageID    string   `json:"page_id"` // subscription or page identifier
	Seq       uint64   `json:"seq"`     // monotonically increasing per subscription (gap detection)
	Records   []Record `json:"records"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds at flush
}

// Options selects which mutations a subscription receives, mirroring the
// MutationObserverInit dictionary.
type Options struct {
	// Attributes delivers attribute changes.
	Attributes bool
	// AttributeFilter restricts attribute changes to these names. Empty
	// means every attribute.
	AttributeFilter []string
	// ChildList delivers insertions and removals.
	ChildList bool
	// Subtree extends observation from the root to all its descendants.
	Subtree bool
}

// Wants reports whether a record of the given op and attribute name passes
// the options.
func (o Options) Wants(op Op, name string) bool {
	switch {
	case op.IsAttribute():
		if !o.Attributes {
			return false
		}
		if len(o.AttributeFilter) == 0 {
			return true
		}
		for _, f := range o.AttributeFilter {
			if f == name {
				return true
			}
		}
		return false
	case op.IsChildList():
		return o.ChildList
	}
	return false
}
