// Package datewatch keeps every timestamp-bearing element of a document
// rendered as a locale-formatted date. It renders all existing elements
// once, then follows attribute changes and subtree insertions delivered by
// the Tree.
package datewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/creatorsforacause/datefmt"
)

const (
	DefaultClass     = "date"
	DefaultAttribute = "data-unix-timestamp"
	// TooltipAttribute receives the full UTC rendering.
	TooltipAttribute = "title"
)

// ErrAlreadyStarted is returned by Start on a running Renderer.
var ErrAlreadyStarted = errors.New("datewatch: already started")

// Config configures a Renderer. Zero values take defaults.
type Config struct {
	Class     string
	Attribute string
	// Locale is a BCP 47 or POSIX locale; empty uses the host locale.
	Locale string
	// Location is the zone of the display string; nil uses time.Local.
	Location  *time.Location
	Debounce  time.Duration
	MaxBuffer int
	Logger    *slog.Logger
}

func (c *Config) defaults() {
	if c.Class == "" {
		c.Class = DefaultClass
	}
	if c.Attribute == "" {
		c.Attribute = DefaultAttribute
	}
	if c.Locale == "" {
		c.Locale = datefmt.HostLocale()
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats counts render outcomes since construction.
type Stats struct {
	Rendered int64 `json:"rendered"`
	Skipped  int64 `json:"skipped"`
}

// Renderer is the live timestamp renderer for one Tree.
type Renderer struct {
	tree   Tree
	cfg    Config
	format *datefmt.Formatter
	logger *slog.Logger

	mu   sync.Mutex
	stop func()

	rendered atomic.Int64
	skipped  atomic.Int64
}

// New creates a Renderer. Nothing is rendered until Start.
func New(tree Tree, cfg Config) *Renderer {
	cfg.defaults()
	return &Renderer{
		tree:   tree,
		cfg:    cfg,
		format: datefmt.New(cfg.Locale),
		logger: cfg.Logger,
	}
}

// Start installs the watch, then renders every element already in the
// tree. Elements inserted while the scan runs are reported by the watch.
func (r *Renderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stop, err := r.tree.Watch(ctx, WatchOptions{
		Attribute: r.cfg.Attribute,
		Debounce:  r.cfg.Debounce,
		MaxBuffer: r.cfg.MaxBuffer,
	}, r.HandleMutations)
	if err != nil {
		return fmt.Errorf("datewatch: watch: %w", err)
	}

	els, err := r.tree.FindAll(nil, r.cfg.Class)
	if err != nil {
		stop()
		return fmt.Errorf("datewatch: initial scan: %w", err)
	}
	for _, el := range els {
		_ = r.Render(el)
	}
	r.stop = stop

	r.logger.Info("datewatch: started",
		"elements", len(els),
		"locale", r.format.Locale().String(),
		"zone", r.cfg.Location.String(),
	)
	return nil
}

// Stop removes the watch. Safe to call more than once; a stopped Renderer
// may be started again.
func (r *Renderer) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
		r.logger.Info("datewatch: stopped", "rendered", r.rendered.Load(), "skipped", r.skipped.Load())
	}
}

// Stats returns the render counters.
func (r *Renderer) Stats() Stats {
	return Stats{Rendered: r.rendered.Load(), Skipped: r.skipped.Load()}
}

// HandleMutations processes one delivered batch in order.
func (r *Renderer) HandleMutations(changes []Change) {
	for _, c := range changes {
		switch c.Kind {
		case AttributeChanged:
			// Render warns when the target is not a date element.
			if c.Attr != r.cfg.Attribute || c.Target == nil {
				continue
			}
			_ = r.Render(c.Target)

		case SubtreeAdded:
			for _, added := range c.Added {
				els, err := r.tree.FindAll(added, r.cfg.Class)
				if err != nil {
					r.logger.Warn("datewatch: scan inserted subtree", "root", added.String(), "error", err)
					continue
				}
				for _, el := range els {
					_ = r.Render(el)
				}
			}
		}
	}
}

// Render formats el's timestamp into its text and tooltip. Invalid input
// is logged and returned as a *ParseWarning; el is left untouched.
func (r *Renderer) Render(el Element) error {
	if !el.HasClass(r.cfg.Class) {
		return r.warn(&ParseWarning{Element: el.String(), Reason: ReasonNotDateElement})
	}

	raw, ok := el.Attr(r.cfg.Attribute)
	if !ok {
		return r.warn(&ParseWarning{Element: el.String(), Reason: ReasonMissing})
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return r.warn(&ParseWarning{Element: el.String(), Value: raw, Reason: ReasonInvalid, Err: err})
	}

	display, tooltip := r.Strings(ms)
	if err := el.SetText(display); err != nil {
		r.skipped.Add(1)
		return fmt.Errorf("datewatch: set text on %s: %w", el, err)
	}
	if err := el.SetAttr(TooltipAttribute, tooltip); err != nil {
		r.skipped.Add(1)
		return fmt.Errorf("datewatch: set %s on %s: %w", TooltipAttribute, el, err)
	}
	r.rendered.Add(1)
	return nil
}

// Strings returns the display string (medium date, full time, configured
// zone) and the tooltip (full date and time, UTC) for ms.
func (r *Renderer) Strings(ms int64) (display, tooltip string) {
	t := time.UnixMilli(ms)
	display = r.format.Format(t.In(r.cfg.Location), datefmt.Medium, datefmt.Full)
	tooltip = r.format.Format(t.UTC(), datefmt.Full, datefmt.Full)
	return display, tooltip
}

func (r *Renderer) warn(w *ParseWarning) error {
	r.skipped.Add(1)
	r.logger.Warn("datewatch: element left unrendered",
		"element", w.Element,
		"reason", string(w.Reason),
		"value", w.Value,
	)
	return w
}
