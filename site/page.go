package site

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/datewatch"
	"github.com/hazyhaar/creatorsforacause/dom"
	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/dom/sink"
	"github.com/hazyhaar/creatorsforacause/idgen"
)

var newBatchID = idgen.Prefixed("bat_", idgen.Default)

//go:embed templates/index.html
var defaultTemplate []byte

// DefaultTemplate returns a copy of the embedded page template.
func DefaultTemplate() []byte {
	return bytes.Clone(defaultTemplate)
}

// LoadTemplate reads a template file; an empty path yields the embedded one.
func LoadTemplate(path string) ([]byte, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("site: read template: %w", err)
	}
	return b, nil
}

// Page builds fully rendered documents from a template and the remote API.
type Page struct {
	template []byte
	client   *api.Client
	render   datewatch.Config
	trace    sink.Sink
	logger   *slog.Logger
	md       *converter.Converter
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithTemplate replaces the embedded template.
func WithTemplate(tmpl []byte) PageOption {
	return func(p *Page) { p.template = tmpl }
}

// WithRenderConfig sets the date renderer configuration.
func WithRenderConfig(cfg datewatch.Config) PageOption {
	return func(p *Page) { p.render = cfg }
}

// WithTraceSink copies every mutation batch seen by the date renderer to s.
func WithTraceSink(s sink.Sink) PageOption {
	return func(p *Page) { p.trace = s }
}

// WithPageLogger sets a custom logger.
func WithPageLogger(l *slog.Logger) PageOption {
	return func(p *Page) { p.logger = l }
}

// NewPage creates a Page fetching from client.
func NewPage(client *api.Client, opts ...PageOption) *Page {
	p := &Page{
		template: defaultTemplate,
		client:   client,
		logger:   slog.Default(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	for _, o := range opts {
		o(p)
	}
	if p.render.Logger == nil {
		p.render.Logger = p.logger
	}
	return p
}

// Build parses the template, starts a date renderer on it, loads the
// remote data and flushes pending mutations so every date, including those
// in inserted cards, is rendered when Build returns.
func (p *Page) Build(ctx context.Context) (*dom.Document, error) {
	doc, err := dom.Parse(bytes.NewReader(p.template),
		dom.WithLogger(p.logger),
		dom.WithURL(p.client.BaseURL()),
		dom.WithIDGenerator(newBatchID),
	)
	if err != nil {
		return nil, fmt.Errorf("site: build: %w", err)
	}

	var batches, records atomic.Int64
	sinks := []sink.Sink{sink.NewCallback(func(_ context.Context, b mutation.Batch) error {
		batches.Add(1)
		records.Add(int64(len(b.Records)))
		return nil
	})}
	if p.trace != nil {
		sinks = append(sinks, p.trace)
	}
	tree := datewatch.DocumentTree(doc,
		datewatch.WithTreeLogger(p.logger),
		datewatch.WithTrace(sink.NewRouter(p.logger, sinks...)),
	)

	r := datewatch.New(tree, p.render)
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("site: build: %w", err)
	}
	defer r.Stop()

	markup := DateMarkup{Class: p.render.Class, Attribute: p.render.Attribute}
	if err := Load(ctx, p.client, doc, markup); err != nil {
		return nil, err
	}
	doc.Flush()

	st := r.Stats()
	p.logger.Info("site: page built",
		"dates_rendered", st.Rendered,
		"dates_skipped", st.Skipped,
		"batches", batches.Load(),
		"records", records.Load(),
	)
	return doc, nil
}

// WriteHTML serialises doc.
func (p *Page) WriteHTML(w io.Writer, doc *dom.Document) error {
	if err := doc.Render(w); err != nil {
		return fmt.Errorf("site: write html: %w", err)
	}
	return nil
}

// WriteMarkdown converts the <body> of doc to Markdown, without the card
// template.
func (p *Page) WriteMarkdown(w io.Writer, doc *dom.Document) error {
	body := doc.Query(nil, "body")
	if body == nil {
		return fmt.Errorf("%w: body", ErrMissingElement)
	}
	// Work on a detached copy so the document itself is untouched.
	clone := doc.Clone(body)
	for _, t := range doc.QueryAll(clone, cardTemplateTag) {
		if t.Parent != nil {
			doc.RemoveChild(t.Parent, t)
		}
	}

	md, err := p.md.ConvertString(doc.OuterHTML(clone))
	if err != nil {
		return fmt.Errorf("site: markdown: %w", err)
	}
	_, err = io.WriteString(w, md)
	return err
}
