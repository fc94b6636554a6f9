package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/creatorsforacause/browser"
	"github.com/hazyhaar/creatorsforacause/datewatch"
	"github.com/hazyhaar/creatorsforacause/dom/sink"
)

func (a *app) liveCmd() *cobra.Command {
	var (
		pageURL string
		trace   bool
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Keep the dates of a page rendered in Chrome until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pageURL == "" {
				return fmt.Errorf("c4ac: live: --url is required")
			}
			ctx := cmd.Context()

			mgr := browser.NewManager(browser.Config{
				RemoteURL:        a.cfg.Browser.Remote,
				Headless:         *a.cfg.Browser.Headless,
				ResourceBlocking: a.cfg.Browser.ResourceBlocking,
				Logger:           a.logger,
			})
			if _, err := mgr.Start(ctx); err != nil {
				return err
			}
			defer mgr.Close()

			tab, err := browser.OpenTab(ctx, mgr, pageURL)
			if err != nil {
				return err
			}
			defer tab.Close()

			opts := []browser.PageOption{browser.WithLogger(a.logger)}
			if trace {
				opts = append(opts, browser.WithPageTrace(sink.NewStdout(cmd.OutOrStdout())))
			}
			r := datewatch.New(browser.NewPage(tab, opts...), a.renderConfig())
			if err := r.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("c4ac: live renderer running", "url", pageURL)

			<-ctx.Done()
			r.Stop()
			st := r.Stats()
			a.logger.Info("c4ac: live renderer stopped", "rendered", st.Rendered, "skipped", st.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "page to open")
	cmd.Flags().BoolVar(&trace, "trace", false, "print mutation batches reported by the page as JSON lines")
	return cmd
}
