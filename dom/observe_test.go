package dom

import (
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
)

type collector struct {
	mu      sync.Mutex
	batches []mutation.Batch
	got     chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 64)}
}

func (c *collector) fn(b mutation.Batch) {
	c.mu.Lock()
	c.batches = append(c.batches, b)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) records() []mutation.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []mutation.Record
	for _, b := range c.batches {
		out = append(out, b.Records...)
	}
	return out
}

var everything = mutation.Options{Attributes: true, ChildList: true, Subtree: true}

func TestObserve_FlushDeliversOneBatch(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	// A long window keeps the background goroutine out of the way.
	sub := d.Observe(nil, everything, c.fn, WithDebounce(time.Hour, 0))
	defer sub.Disconnect()

	cards := d.QueryAll(nil, ".card")
	d.SetAttr(cards[0], "data-a", "1")
	d.SetAttr(cards[1], "data-a", "2")
	d.Flush()

	if len(c.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(c.batches))
	}
	b := c.batches[0]
	if len(b.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(b.Records))
	}
	if b.Seq != 1 || b.PageID != sub.ID() || b.ID == "" {
		t.Errorf("batch header = %+v", b)
	}
	if b.Records[0].Target != cards[0] || b.Records[1].Target != cards[1] {
		t.Error("records out of mutation order")
	}
}

func TestObserve_CompressesRepeatedAttr(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	sub := d.Observe(nil, everything, c.fn, WithDebounce(time.Hour, 0))
	defer sub.Disconnect()

	date := d.Query(nil, ".date")
	d.SetAttr(date, "data-unix-timestamp", "1")
	d.SetAttr(date, "data-unix-timestamp", "2")
	d.Flush()

	recs := c.records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Value != "2" || recs[0].OldValue != "0" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestObserve_AttributeFilter(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	opts := mutation.Options{Attributes: true, AttributeFilter: []string{"data-unix-timestamp"}, Subtree: true}
	sub := d.Observe(nil, opts, c.fn, WithDebounce(time.Hour, 0))
	defer sub.Disconnect()

	date := d.Query(nil, ".date")
	d.SetAttr(date, "title", "x")
	d.SetText(date, "hello")
	d.Flush()
	if n := len(c.records()); n != 0 {
		t.Fatalf("got %d records for filtered changes, want 0", n)
	}

	d.SetAttr(date, "data-unix-timestamp", "5")
	d.Flush()
	if n := len(c.records()); n != 1 {
		t.Fatalf("got %d records, want 1", n)
	}
}

func TestObserve_DetachedMutationsIgnored(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	sub := d.Observe(nil, everything, c.fn, WithDebounce(time.Hour, 0))
	defer sub.Disconnect()

	card := d.Clone(d.Query(nil, ".card"))
	d.SetText(d.Query(card, "slot[name=streamer]"), "bob")
	d.SetAttr(card, "class", "card")
	d.Flush()
	if n := len(c.records()); n != 0 {
		t.Fatalf("detached edits produced %d records", n)
	}

	body := d.Query(nil, "body")
	d.AppendChild(body, card)
	d.Flush()

	recs := c.records()
	if len(recs) != 1 || recs[0].Op != mutation.OpInsert {
		t.Fatalf("records = %+v, want a single insert", recs)
	}
	if len(recs[0].Added) != 1 || recs[0].Added[0] != card {
		t.Error("insert record does not carry the inserted root")
	}
	if recs[0].HTML == "" || recs[0].XPath == "" {
		t.Errorf("insert record missing html/xpath: %+v", recs[0])
	}
}

func TestFlush_SettlesCallbackMutations(t *testing.T) {
	d := mustParse(t, testPage)
	date := d.Query(nil, ".date")

	var mu sync.Mutex
	calls := 0
	opts := mutation.Options{Attributes: true, AttributeFilter: []string{"data-unix-timestamp"}, Subtree: true}
	sub := d.Observe(nil, opts, func(b mutation.Batch) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			d.SetAttr(date, "data-unix-timestamp", "99")
		}
	}, WithDebounce(time.Hour, 0))
	defer sub.Disconnect()

	d.SetAttr(date, "data-unix-timestamp", "1")
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

func TestObserve_BackgroundDelivery(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	sub := d.Observe(nil, everything, c.fn)
	defer sub.Disconnect()

	d.SetAttr(d.Query(nil, ".date"), "data-unix-timestamp", "7")

	select {
	case <-c.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered by the background goroutine")
	}
}

func TestObserve_MaxBufferDeliversEarly(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	sub := d.Observe(nil, everything, c.fn, WithDebounce(time.Hour, 2))
	defer sub.Disconnect()

	cards := d.QueryAll(nil, ".card")
	d.SetAttr(cards[0], "data-a", "1")
	d.SetAttr(cards[1], "data-a", "1")

	select {
	case <-c.got:
	case <-time.After(2 * time.Second):
		t.Fatal("full buffer was not delivered before the window")
	}
}

func TestDisconnect_StopsDelivery(t *testing.T) {
	d := mustParse(t, testPage)
	c := newCollector()
	sub := d.Observe(nil, everything, c.fn, WithDebounce(time.Hour, 0))

	d.SetAttr(d.Query(nil, ".date"), "data-unix-timestamp", "7")
	sub.Disconnect()
	sub.Disconnect()
	d.Flush()

	if n := len(c.records()); n != 0 {
		t.Errorf("got %d records after Disconnect", n)
	}
}
