package datewatch

import "fmt"

// Reason classifies a ParseWarning.
type Reason string

const (
	ReasonNotDateElement Reason = "not a date element"
	ReasonMissing        Reason = "timestamp attribute missing"
	ReasonInvalid        Reason = "timestamp is not a base-10 integer"
)

// ParseWarning reports an element Render left untouched. It is logged
// when produced; callers may ignore it.
type ParseWarning struct {
	Element string
	Value   string
	Reason  Reason
	Err     error
}

func (w *ParseWarning) Error() string {
	if w.Value != "" {
		return fmt.Sprintf("datewatch: %s: %s (%q)", w.Element, w.Reason, w.Value)
	}
	return fmt.Sprintf("datewatch: %s: %s", w.Element, w.Reason)
}

func (w *ParseWarning) Unwrap() error {
	return w.Err
}
