// Package site renders remote fundraiser and stream data into the page
// template, builds fully rendered pages and serves them for preview.
package site

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/datewatch"
	"github.com/hazyhaar/creatorsforacause/dom"
)

// Element IDs of the page template.
const (
	FundsID         = "fundraiser.funds"
	CurrencyID      = "fundraiser.currency"
	TemplateID      = "streams.template"
	TwitchID        = "streams.twitch"
	YouTubeID       = "streams.youtube"
	LiveClass       = "live"
	slotStreamer    = "slot[name='streamer']"
	slotTitle       = "slot[name='title']"
	slotStartTime   = "slot[name='start-time']"
	slotViewers     = "slot[name='viewers']"
	cardTemplateTag = "template"
)

// DateMarkup names the class and attribute that mark a card's timestamp
// element. It must match the class and attribute the date renderer
// watches.
type DateMarkup struct {
	Class     string
	Attribute string
}

// DefaultDateMarkup is the markup the date renderer watches by default.
var DefaultDateMarkup = DateMarkup{Class: datewatch.DefaultClass, Attribute: datewatch.DefaultAttribute}

func (m DateMarkup) orDefault() DateMarkup {
	if m.Class == "" {
		m.Class = DefaultDateMarkup.Class
	}
	if m.Attribute == "" {
		m.Attribute = DefaultDateMarkup.Attribute
	}
	return m
}

// ErrMissingElement is returned when the template lacks a required element.
var ErrMissingElement = errors.New("site: missing element")

func mustByID(doc *dom.Document, id string) (*html.Node, error) {
	n, err := doc.ByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: #%s", ErrMissingElement, id)
	}
	return n, nil
}

// RenderFundraiser writes the amount and currency into their elements.
func RenderFundraiser(doc *dom.Document, f api.Fundraiser) error {
	funds, err := mustByID(doc, FundsID)
	if err != nil {
		return err
	}
	currency, err := mustByID(doc, CurrencyID)
	if err != nil {
		return err
	}
	doc.SetText(funds, f.AmountText())
	doc.SetText(currency, f.CauseCurrency)
	return nil
}

// RenderStreamCards appends one card per streamer to container, in map
// order. Offline streamers (nil details) get a card with only the name
// filled. Calling it twice appends duplicates. Start times are written to
// the card's elements carrying markup.Class, under markup.Attribute.
func RenderStreamCards(doc *dom.Document, container *html.Node, streams *api.StreamMap, markup DateMarkup) error {
	markup = markup.orDefault()
	tmpl, err := mustByID(doc, TemplateID)
	if err != nil {
		return err
	}
	proto := firstElementChild(tmpl)
	if proto == nil {
		return fmt.Errorf("%w: #%s has no element child", ErrMissingElement, TemplateID)
	}
	if streams == nil {
		return nil
	}

	for p := streams.Oldest(); p != nil; p = p.Next() {
		card := doc.Clone(proto)
		fillCard(doc, card, p.Key, p.Value, markup)
		doc.AppendChild(container, card)
	}
	return nil
}

// fillCard fills a detached card. The card's date element gets the start
// time as a timestamp when it parses as RFC 3339; otherwise it is dropped so
// the live renderer never sees an element it cannot render.
func fillCard(doc *dom.Document, card *html.Node, streamer string, details *api.LiveStreamDetails, markup DateMarkup) {
	setSlot(doc, card, slotStreamer, streamer)

	var started time.Time
	hasStart := false
	if details != nil {
		setSlot(doc, card, slotTitle, details.Title)
		setSlot(doc, card, slotStartTime, details.StartTime)
		setSlot(doc, card, slotViewers, details.Viewers)

		if class, _ := doc.Attr(card, "class"); class != "" {
			doc.SetAttr(card, "class", class+" "+LiveClass)
		} else {
			doc.SetAttr(card, "class", LiveClass)
		}
		if t, err := time.Parse(time.RFC3339, details.StartTime); err == nil {
			started, hasStart = t, true
		}
	}

	for _, date := range doc.QueryAll(card, "."+markup.Class) {
		if hasStart {
			doc.SetAttr(date, markup.Attribute, strconv.FormatInt(started.UnixMilli(), 10))
			continue
		}
		if date.Parent != nil {
			doc.RemoveChild(date.Parent, date)
		}
	}
}

func setSlot(doc *dom.Document, card *html.Node, selector, text string) {
	if slot := doc.Query(card, selector); slot != nil {
		doc.SetText(slot, text)
	}
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Load fetches both resources concurrently, then renders the fundraiser,
// the twitch cards and, when the template has a container for them, the
// youtube cards. A fetch failure aborts before anything is written.
func Load(ctx context.Context, client *api.Client, doc *dom.Document, markup DateMarkup) error {
	snap, err := client.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("site: load: %w", err)
	}
	return Apply(doc, snap, markup)
}

// Apply renders an already fetched snapshot.
func Apply(doc *dom.Document, snap *api.Snapshot, markup DateMarkup) error {
	if err := RenderFundraiser(doc, snap.Fundraiser); err != nil {
		return err
	}

	twitch, err := mustByID(doc, TwitchID)
	if err != nil {
		return err
	}
	if err := RenderStreamCards(doc, twitch, snap.Streams.Twitch.Streams, markup); err != nil {
		return err
	}

	if youtube, err := doc.ByID(YouTubeID); err == nil {
		if err := RenderStreamCards(doc, youtube, snap.Streams.YouTube.Streams, markup); err != nil {
			return err
		}
	}
	return nil
}
