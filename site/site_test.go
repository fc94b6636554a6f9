package site

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/datewatch"
	"github.com/hazyhaar/creatorsforacause/dom"
	"github.com/hazyhaar/creatorsforacause/dom/mutation"
	"github.com/hazyhaar/creatorsforacause/dom/sink"
)

const (
	fundraiserJSON = `{"data": {"amountRaised": 4200, "causeCurrency": "USD"}}`
	streamsJSON    = `{
  "youtube": {"updated": "u", "streams": {"carol": {"href": "https://youtube.com/carol", "title": "Live", "start_time": "2024-03-01T12:00:00Z", "viewers": "12"}}},
  "twitch": {"updated": "u", "streams": {
    "alice": null,
    "bob": {"href": "https://twitch.tv/bob", "title": "Coding", "start_time": "t", "viewers": "5"}
  }}
}`
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func templateDoc(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(bytes.NewReader(DefaultTemplate()), dom.WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func apiServer(t *testing.T, fundraiser, streams string, status int) *api.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(api.FundraiserPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, fundraiser)
	})
	mux.HandleFunc(api.StreamsPath, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, streams)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, api.WithLogger(quiet()))
}

func renderConfig() datewatch.Config {
	return datewatch.Config{Locale: "en", Location: time.UTC, Logger: quiet()}
}

type cardText struct {
	Streamer, Title, StartTime, Viewers string
	Live                                bool
}

func cards(doc *dom.Document, containerID string) []cardText {
	container, _ := doc.ByID(containerID)
	var out []cardText
	for _, c := range doc.QueryAll(container, ".creator") {
		slot := func(name string) string {
			if n := doc.Query(c, "slot[name='"+name+"']"); n != nil {
				return doc.Text(n)
			}
			return ""
		}
		out = append(out, cardText{
			Streamer:  slot("streamer"),
			Title:     slot("title"),
			StartTime: slot("start-time"),
			Viewers:   slot("viewers"),
			Live:      doc.HasClass(c, LiveClass),
		})
	}
	return out
}

func TestRenderFundraiser(t *testing.T) {
	doc := templateDoc(t)
	if err := RenderFundraiser(doc, api.Fundraiser{AmountRaised: 4200, CauseCurrency: "USD"}); err != nil {
		t.Fatal(err)
	}
	funds, _ := doc.ByID(FundsID)
	currency, _ := doc.ByID(CurrencyID)
	if doc.Text(funds) != "4200" || doc.Text(currency) != "USD" {
		t.Errorf("funds = %q, currency = %q", doc.Text(funds), doc.Text(currency))
	}
}

func TestRenderStreamCards_ExactlyTwo(t *testing.T) {
	// WHAT: alice (offline) and bob (live) produce two cards in order.
	// WHY: offline streamers still get a card, with only the name filled.
	doc := templateDoc(t)
	streams := api.NewStreamMap()
	streams.Set("alice", nil)
	streams.Set("bob", &api.LiveStreamDetails{Href: "h", Title: "Coding", StartTime: "t", Viewers: "5"})

	twitch, _ := doc.ByID(TwitchID)
	if err := RenderStreamCards(doc, twitch, streams, DefaultDateMarkup); err != nil {
		t.Fatal(err)
	}

	want := []cardText{
		{Streamer: "alice"},
		{Streamer: "bob", Title: "Coding", StartTime: "t", Viewers: "5", Live: true},
	}
	if diff := cmp.Diff(want, cards(doc, TwitchID)); diff != "" {
		t.Errorf("cards (-want +got):\n%s", diff)
	}

	// Neither card has a parseable start time, so no date element survives.
	if n := len(doc.QueryAll(twitch, ".date")); n != 0 {
		t.Errorf("%d date elements left in cards", n)
	}
}

func TestRenderStreamCards_Duplicates(t *testing.T) {
	doc := templateDoc(t)
	streams := api.NewStreamMap()
	streams.Set("alice", nil)
	twitch, _ := doc.ByID(TwitchID)

	for i := 0; i < 2; i++ {
		if err := RenderStreamCards(doc, twitch, streams, DefaultDateMarkup); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(cards(doc, TwitchID)); n != 2 {
		t.Errorf("got %d cards, want 2 (no de-duplication)", n)
	}
}

func TestRenderStreamCards_MissingTemplate(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><div id="streams.twitch"></div></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	twitch, _ := doc.ByID(TwitchID)
	if err := RenderStreamCards(doc, twitch, api.NewStreamMap(), DateMarkup{}); !errors.Is(err, ErrMissingElement) {
		t.Errorf("err = %v, want ErrMissingElement", err)
	}
}

func TestPage_Build(t *testing.T) {
	client := apiServer(t, fundraiserJSON, streamsJSON, http.StatusOK)
	page := NewPage(client, WithRenderConfig(renderConfig()), WithPageLogger(quiet()))

	doc, err := page.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	funds, _ := doc.ByID(FundsID)
	if doc.Text(funds) != "4200" {
		t.Errorf("funds = %q", doc.Text(funds))
	}
	if n := len(cards(doc, TwitchID)); n != 2 {
		t.Errorf("twitch cards = %d, want 2", n)
	}

	// carol's card carries an RFC 3339 start time: its date was rendered
	// by the live renderer when the card was inserted.
	youtube, _ := doc.ByID(YouTubeID)
	date := doc.Query(youtube, ".date")
	if date == nil {
		t.Fatal("youtube card has no date element")
	}
	if got, want := doc.Text(date), "Mar 1, 2024, 12:00:00 PM Coordinated Universal Time"; got != want {
		t.Errorf("date text = %q, want %q", got, want)
	}

	var html, md bytes.Buffer
	if err := page.WriteHTML(&html, doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html.String(), `data-unix-timestamp="1709294400000"`) {
		t.Error("rendered html lacks the card timestamp")
	}
	if err := page.WriteMarkdown(&md, doc); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Creators for a Cause", "4200", "Coding", "carol"} {
		if !strings.Contains(md.String(), want) {
			t.Errorf("markdown lacks %q:\n%s", want, md.String())
		}
	}
}

func TestPage_BuildCustomAttribute(t *testing.T) {
	// WHAT: a renderer watching data-ms still renders the card dates.
	// WHY: cards must carry the timestamp under the attribute the renderer watches.
	client := apiServer(t, fundraiserJSON, streamsJSON, http.StatusOK)
	rc := renderConfig()
	rc.Attribute = "data-ms"
	page := NewPage(client, WithRenderConfig(rc), WithPageLogger(quiet()))

	doc, err := page.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	youtube, _ := doc.ByID(YouTubeID)
	date := doc.Query(youtube, ".date")
	if date == nil {
		t.Fatal("youtube card has no date element")
	}
	if got, want := doc.Text(date), "Mar 1, 2024, 12:00:00 PM Coordinated Universal Time"; got != want {
		t.Errorf("date text = %q, want %q", got, want)
	}
	if v, ok := doc.Attr(date, "data-ms"); !ok || v != "1709294400000" {
		t.Errorf("data-ms = %q, %v", v, ok)
	}
	if _, ok := doc.Attr(date, datewatch.DefaultAttribute); ok {
		t.Errorf("card still carries %s", datewatch.DefaultAttribute)
	}
}

func TestPage_BuildTraceBatchIDs(t *testing.T) {
	client := apiServer(t, fundraiserJSON, streamsJSON, http.StatusOK)
	var (
		mu  sync.Mutex
		ids []string
	)
	trace := sink.NewCallback(func(_ context.Context, b mutation.Batch) error {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, b.ID)
		return nil
	})
	page := NewPage(client, WithRenderConfig(renderConfig()), WithPageLogger(quiet()), WithTraceSink(trace))

	if _, err := page.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ids) == 0 {
		t.Fatal("trace sink saw no batches")
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, "bat_") {
			t.Errorf("batch id %q lacks bat_ prefix", id)
		}
	}
}

func TestPage_BuildFetchError(t *testing.T) {
	client := apiServer(t, `oops`, streamsJSON, http.StatusInternalServerError)
	page := NewPage(client, WithRenderConfig(renderConfig()), WithPageLogger(quiet()))

	_, err := page.Build(context.Background())
	var rfe *api.RemoteFetchError
	if !errors.As(err, &rfe) || rfe.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want RemoteFetchError 500", err)
	}
}

func TestServer(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := apiServer(t, fundraiserJSON, streamsJSON, http.StatusOK)
	srv := NewServer(NewPage(client, WithRenderConfig(renderConfig()), WithPageLogger(quiet())), static, quiet())

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/.well-known/security.txt", http.StatusOK, "Contact: https://"},
		{"/", http.StatusOK, "Coding"},
		{"/index.md", http.StatusOK, "4200"},
		{"/static/style.css", http.StatusOK, "body{}"},
		{"/static/missing.css", http.StatusNotFound, ""},
		{"/static/../site_test.go", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body lacks %q", tt.wantBody)
			}
			if rec.Header().Get("Referrer-Policy") != "no-referrer" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestServer_UpstreamFailure(t *testing.T) {
	client := apiServer(t, `oops`, streamsJSON, http.StatusServiceUnavailable)
	srv := NewServer(NewPage(client, WithRenderConfig(renderConfig()), WithPageLogger(quiet())), "", quiet())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSecurityTxt_Fields(t *testing.T) {
	fields := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(string(securityTxt)), "\n") {
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		fields[k] = v
	}
	if !strings.HasPrefix(fields["Contact"], "https://") {
		t.Errorf("Contact = %q", fields["Contact"])
	}
	if _, err := time.Parse(time.RFC3339, fields["Expires"]); err != nil {
		t.Errorf("Expires = %q: %v", fields["Expires"], err)
	}
}
