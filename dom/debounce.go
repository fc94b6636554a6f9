package dom

import (
	"time"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
)

// debounceConfig controls the batching behaviour.
type debounceConfig struct {
	// Window is the coalescing time. Zero delivers on the next turn.
	Window time.Duration
	// MaxBuffer delivers immediately when this many records accumulate. Default: 1000.
	MaxBuffer int
}

func (dc *debounceConfig) defaults() {
	if dc.Window < 0 {
		dc.Window = 0
	}
	if dc.MaxBuffer <= 0 {
		dc.MaxBuffer = 1000
	}
}

// debouncer buffers raw records until the subscription takes them. Timing
// lives in Subscription.loop; the debouncer only owns the buffer.
type debouncer struct {
	cfg     debounceConfig
	records []mutation.Record
}

func newDebouncer(cfg debounceConfig) *debouncer {
	cfg.defaults()
	return &debouncer{cfg: cfg}
}

// add pushes a record into the buffer. Returns true when the buffer is full
// and should be delivered without waiting for the window.
func (d *debouncer) add(rec mutation.Record) bool {
	d.records = append(d.records, rec)
	return len(d.records) >= d.cfg.MaxBuffer
}

// take returns the compressed buffer and resets it.
func (d *debouncer) take() []mutation.Record {
	if len(d.records) == 0 {
		return nil
	}
	out := compress(d.records)
	d.records = nil
	return out
}

func (d *debouncer) reset() {
	d.records = nil
}

// compress merges runs of records that a consumer would only read the last
// of:
//   - N consecutive attr on the same (target, name) → keep last, old_value from first
//   - insert/remove/attr_del are never compressed
func compress(records []mutation.Record) []mutation.Record {
	if len(records) <= 1 {
		return records
	}

	result := make([]mutation.Record, 0, len(records))

	for i := 0; i < len(records); i++ {
		rec := records[i]

		switch rec.Op {
		case mutation.OpAttr:
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Op == rec.Op &&
				sameTarget(records[j], rec) &&
				records[j].Name == rec.Name {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1

		default:
			result = append(result, rec)
		}
	}

	return result
}

// sameTarget compares node identity when both records carry one, XPath
// otherwise (records decoded from a browser have no node pointers).
func sameTarget(a, b mutation.Record) bool {
	if a.Target != nil && b.Target != nil {
		return a.Target == b.Target
	}
	return a.XPath == b.XPath
}
