package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/creatorsforacause/datewatch"
	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/dom/sink"
	"github.com/hazyhaar/creatorsforacause/idgen"
)

//go:embed observer.js
var observerJS string

const bindingName = "__c4ac_binding"

var (
	newPageID  = idgen.Prefixed("page_", idgen.Default)
	newBatchID = idgen.Prefixed("bat_", idgen.Default)
)

// PageOption configures a Page.
type PageOption func(*Page)

// WithPageTrace copies every batch reported by the page to s.
func WithPageTrace(s sink.Sink) PageOption {
	return func(p *Page) { p.trace = s }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) PageOption {
	return func(p *Page) { p.logger = l }
}

// Page exposes a live browser tab as a datewatch.Tree. Mutations are
// collected in the page by a MutationObserver and reported through a CDP
// binding. The observer keeps each reported element under a numeric id
// until Go takes it, so later DOM writes cannot redirect a record to a
// different element. XPaths are kept for tracing only.
type Page struct {
	page   *rod.Page
	url    string
	id     string
	trace  sink.Sink
	logger *slog.Logger

	mu  sync.Mutex
	seq uint64
}

// NewPage wraps an open tab.
func NewPage(tab *Tab, opts ...PageOption) *Page {
	p := &Page{
		page:   tab.Page,
		url:    tab.PageURL,
		id:     newPageID(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FindAll implements datewatch.Tree.
func (p *Page) FindAll(root datewatch.Element, class string) ([]datewatch.Element, error) {
	sel := "." + class
	if root == nil {
		els, err := p.page.Elements(sel)
		if err != nil {
			return nil, fmt.Errorf("browser: query %s: %w", sel, err)
		}
		return p.wrap(els), nil
	}

	re, ok := root.(*element)
	if !ok {
		return nil, fmt.Errorf("browser: element %s does not belong to this page", root)
	}
	els, err := re.el.Elements(sel)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s under %s: %w", sel, re, err)
	}
	out := p.wrap(els)
	if re.HasClass(class) {
		out = append([]datewatch.Element{re}, out...)
	}
	return out, nil
}

// Watch implements datewatch.Tree. The debounce window is applied inside
// the page so a burst of DOM writes crosses CDP as a single call.
func (p *Page) Watch(ctx context.Context, opts datewatch.WatchOptions, fn func([]datewatch.Change)) (func(), error) {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(p.page); err != nil {
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	wait := p.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		p.handlePayload(ctx, e.Payload, fn)
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	maxBuffer := opts.MaxBuffer
	if maxBuffer <= 0 {
		maxBuffer = 1000
	}
	if _, err := p.page.Eval(observerJS, opts.Attribute, opts.Debounce.Milliseconds(), maxBuffer); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("browser: inject observer: %w", err)
	}
	p.logger.Info("browser: observer injected", "url", p.url, "attribute", opts.Attribute)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if _, err := p.page.Eval(`() => window.__c4ac_stop && window.__c4ac_stop()`); err != nil {
				p.logger.Debug("browser: disconnect observer", "error", err)
			}
			cancel()
			<-done
		})
	}
	return stop, nil
}

func (p *Page) handlePayload(ctx context.Context, payload string, fn func([]datewatch.Change)) {
	records, err := decodeRecords(payload)
	if err != nil {
		p.logger.Warn("browser: bad binding payload", "error", err)
		return
	}
	b := p.batch(records)
	if p.trace != nil {
		if err := p.trace.Send(ctx, b); err != nil {
			p.logger.Warn("browser: trace batch", "batch", b.ID, "error", err)
		}
	}
	if changes := toChanges(records, p.take); len(changes) > 0 {
		fn(changes)
	}
}

// pageRecord is a mutation record as reported by the observer, tagged with
// the id under which the observer holds its element.
type pageRecord struct {
	mutation.Record
	Node int `json:"node"`
}

// batch numbers the records of one binding call.
func (p *Page) batch(records []pageRecord) mutation.Batch {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	recs := make([]mutation.Record, len(records))
	for i, r := range records {
		recs[i] = r.Record
	}
	return mutation.Batch{
		ID:        newBatchID(),
		PageURL:   p.url,
		PageID:    p.id,
		Seq:       seq,
		Records:   recs,
		Timestamp: time.Now().UnixMilli(),
	}
}

func decodeRecords(payload string) ([]pageRecord, error) {
	var records []pageRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("browser: decode records: %w", err)
	}
	return records, nil
}

// take claims the element the observer reported under id. It fails when
// the element has since left the document.
func (p *Page) take(rec pageRecord) (datewatch.Element, error) {
	el, err := p.page.Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(`(id) => window.__c4ac_take(id)`, rec.Node))
	if err != nil {
		return nil, err
	}
	return &element{el: el, xpath: rec.XPath}, nil
}

// toChanges converts page records to Changes. Elements that left the page
// before they could be claimed are dropped.
func toChanges(records []pageRecord, take func(pageRecord) (datewatch.Element, error)) []datewatch.Change {
	var out []datewatch.Change
	for _, rec := range records {
		switch {
		case rec.Op.IsAttribute():
			el, err := take(rec)
			if err != nil {
				continue
			}
			out = append(out, datewatch.Change{Kind: datewatch.AttributeChanged, Target: el, Attr: rec.Name})
		case rec.Op == mutation.OpInsert && rec.NodeType == 1:
			el, err := take(rec)
			if err != nil {
				continue
			}
			out = append(out, datewatch.Change{Kind: datewatch.SubtreeAdded, Added: []datewatch.Element{el}})
		}
	}
	return out
}

func (p *Page) wrap(els rod.Elements) []datewatch.Element {
	out := make([]datewatch.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out
}

// element is a remote DOM element.
type element struct {
	el    *rod.Element
	xpath string
}

func (e *element) Attr(name string) (string, bool) {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (e *element) HasClass(class string) bool {
	res, err := e.el.Eval(`(c) => this.classList.contains(c)`, class)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (e *element) SetText(text string) error {
	_, err := e.el.Eval(`(t) => { this.textContent = t }`, text)
	return err
}

func (e *element) SetAttr(name, value string) error {
	_, err := e.el.Eval(`(n, v) => { this.setAttribute(n, v) }`, name, value)
	return err
}

func (e *element) String() string {
	if e.xpath != "" {
		return e.xpath
	}
	return e.el.String()
}
