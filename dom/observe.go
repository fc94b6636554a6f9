package dom

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/idgen"
)

// maxFlushRounds bounds Flush when callbacks keep producing records.
const maxFlushRounds = 64

var newSubscriptionID = idgen.Prefixed("sub_", idgen.Default)

// Subscription is one registered observer. Records matching its options are
// queued as they happen and delivered as a single batch per delivery turn,
// either by its own goroutine or by Document.Flush.
type Subscription struct {
	id   string
	doc  *Document
	root *html.Node
	opts mutation.Options
	fn   func(mutation.Batch)

	mu  sync.Mutex // guards deb
	deb *debouncer

	deliverMu sync.Mutex // one batch at a time, in order
	seq       uint64

	kick   chan struct{}
	urgent chan struct{}
	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// ObserveOption tunes a subscription.
type ObserveOption func(*debounceConfig)

// WithDebounce coalesces records for window before delivering, or until
// maxBuffer records are queued. A zero window delivers on the next turn of
// the delivery goroutine.
func WithDebounce(window time.Duration, maxBuffer int) ObserveOption {
	return func(c *debounceConfig) {
		c.Window = window
		c.MaxBuffer = maxBuffer
	}
}

// Observe registers fn for mutations under root (nil = the document node)
// that pass opts. fn runs on the subscription's delivery goroutine or on
// the goroutine calling Flush, never concurrently with itself. fn may
// mutate the document; it must not call Disconnect on its own subscription.
func (d *Document) Observe(root *html.Node, opts mutation.Options, fn func(mutation.Batch), obsOpts ...ObserveOption) *Subscription {
	if root == nil {
		root = d.root
	}
	var cfg debounceConfig
	for _, o := range obsOpts {
		o(&cfg)
	}

	s := &Subscription{
		id:     newSubscriptionID(),
		doc:    d,
		root:   root,
		opts:   opts,
		fn:     fn,
		deb:    newDebouncer(cfg),
		kick:   make(chan struct{}, 1),
		urgent: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	d.mu.Lock()
	d.subs = append(d.subs, s)
	d.mu.Unlock()

	go s.loop()

	d.logger.Debug("dom: observer registered", "id", s.id, "subtree", opts.Subtree)
	return s
}

// ID returns the subscription identifier, also used as Batch.PageID.
func (s *Subscription) ID() string {
	return s.id
}

// Disconnect stops delivery and discards queued records. Safe to call more
// than once.
func (s *Subscription) Disconnect() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.doc.mu.Lock()
	for i, other := range s.doc.subs {
		if other == s {
			s.doc.subs = append(s.doc.subs[:i], s.doc.subs[i+1:]...)
			break
		}
	}
	s.doc.mu.Unlock()

	close(s.stop)
	<-s.done

	s.mu.Lock()
	s.deb.reset()
	s.mu.Unlock()
}

// Flush delivers every pending record to every subscription on the calling
// goroutine, repeating while callbacks produce new records. It is the
// equivalent of a microtask checkpoint.
func (d *Document) Flush() {
	for round := 0; round < maxFlushRounds; round++ {
		d.mu.Lock()
		subs := append([]*Subscription(nil), d.subs...)
		d.mu.Unlock()

		delivered := false
		for _, s := range subs {
			if s.deliver() {
				delivered = true
			}
		}
		if !delivered {
			return
		}
	}
	d.logger.Warn("dom: flush did not settle", "rounds", maxFlushRounds)
}

func (s *Subscription) loop() {
	defer close(s.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}

	for {
		select {
		case <-s.stop:
			stopTimer()
			return

		case <-s.urgent:
			stopTimer()
			s.deliver()

		case <-s.kick:
			if s.deb.cfg.Window <= 0 {
				s.deliver()
				continue
			}
			// (Re)start the window timer.
			stopTimer()
			timer = time.NewTimer(s.deb.cfg.Window)
			timerC = timer.C

		case <-timerC:
			timer, timerC = nil, nil
			s.deliver()
		}
	}
}

// deliver hands the queued records to fn as one batch. Returns false when
// nothing was pending.
func (s *Subscription) deliver() bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.closed.Load() {
		return false
	}

	s.mu.Lock()
	records := s.deb.take()
	s.mu.Unlock()
	if len(records) == 0 {
		return false
	}

	s.seq++
	s.fn(mutation.Batch{
		ID:        s.doc.newID(),
		PageURL:   s.doc.url,
		PageID:    s.id,
		Seq:       s.seq,
		Records:   records,
		Timestamp: time.Now().UnixMilli(),
	})
	return true
}

func (s *Subscription) enqueue(rec mutation.Record) {
	s.mu.Lock()
	full := s.deb.add(rec)
	s.mu.Unlock()

	ch := s.kick
	if full {
		ch = s.urgent
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// covers reports whether a mutation on target falls inside the observed
// scope.
func (s *Subscription) covers(target *html.Node) bool {
	if target == s.root {
		return true
	}
	return s.opts.Subtree && isInclusiveAncestor(s.root, target)
}

// wantedLocked reports whether any subscription would receive rec.
func (d *Document) wantedLocked(rec mutation.Record) bool {
	for _, s := range d.subs {
		if s.covers(rec.Target) && s.opts.Wants(rec.Op, rec.Name) {
			return true
		}
	}
	return false
}

// queueLocked routes rec to every matching subscription. XPath and HTML
// are only computed when someone is listening.
func (d *Document) queueLocked(rec mutation.Record) {
	var matched []*Subscription
	for _, s := range d.subs {
		if s.covers(rec.Target) && s.opts.Wants(rec.Op, rec.Name) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return
	}

	if rec.XPath == "" {
		switch {
		case rec.Op == mutation.OpInsert && len(rec.Added) > 0:
			rec.XPath = xpathOf(rec.Added[0])
		case rec.Target != nil:
			rec.XPath = xpathOf(rec.Target)
		}
	}
	if rec.Op == mutation.OpInsert && rec.HTML == "" {
		for _, n := range rec.Added {
			rec.HTML += renderNode(n)
		}
	}

	for _, s := range matched {
		s.enqueue(rec)
	}
}
