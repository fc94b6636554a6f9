package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/creatorsforacause/api"
	"github.com/hazyhaar/creatorsforacause/datefmt"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the fundraiser total and every streamer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.client().FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			rc := a.renderConfig()
			locale := rc.Locale
			if locale == "" {
				locale = datefmt.HostLocale()
			}
			return writeStatus(cmd.OutOrStdout(), snap, datefmt.New(locale), rc.Location)
		},
	}
}

// writeStatus prints the fundraiser line then one row per streamer, twitch
// first. Start times that are not RFC 3339 are printed as received.
func writeStatus(w io.Writer, snap *api.Snapshot, f *datefmt.Formatter, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if _, err := fmt.Fprintf(w, "Raised: %s %s\n", snap.Fundraiser.AmountText(), snap.Fundraiser.CauseCurrency); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Platform", "Streamer", "Live", "Title", "Viewers", "Started"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	add := func(platform string, list api.LiveStreamList) {
		for pair := list.Streams.Oldest(); pair != nil; pair = pair.Next() {
			d := pair.Value
			if d == nil {
				data = append(data, []string{platform, pair.Key, "no", "", "", ""})
				continue
			}
			started := d.StartTime
			if t, err := time.Parse(time.RFC3339, d.StartTime); err == nil {
				started = f.Format(t.In(loc), datefmt.Medium, datefmt.Full)
			}
			data = append(data, []string{platform, pair.Key, "yes", d.Title, d.Viewers, started})
		}
	}
	add("twitch", snap.Streams.Twitch)
	add("youtube", snap.Streams.YouTube)

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
