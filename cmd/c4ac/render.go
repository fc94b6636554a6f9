package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/creatorsforacause/dom/sink"
	"github.com/hazyhaar/creatorsforacause/site"
)

func (a *app) page(trace sink.Sink) (*site.Page, error) {
	tmpl, err := site.LoadTemplate(a.cfg.Site.Template)
	if err != nil {
		return nil, err
	}
	opts := []site.PageOption{
		site.WithTemplate(tmpl),
		site.WithRenderConfig(a.renderConfig()),
		site.WithPageLogger(a.logger),
	}
	if trace != nil {
		opts = append(opts, site.WithTraceSink(trace))
	}
	return site.NewPage(a.client(), opts...), nil
}

func (a *app) renderCmd() *cobra.Command {
	var (
		output   string
		markdown bool
		trace    bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch remote data and write the fully rendered page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tr sink.Sink
			if trace {
				tr = sink.NewStdout(cmd.ErrOrStderr())
			}
			page, err := a.page(tr)
			if err != nil {
				return err
			}
			doc, err := page.Build(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("c4ac: render: %w", err)
				}
				defer f.Close()
				w = f
			}
			if markdown {
				return page.WriteMarkdown(w, doc)
			}
			return page.WriteHTML(w, doc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "write markdown instead of HTML")
	cmd.Flags().BoolVar(&trace, "trace", false, "dump mutation batches seen by the date renderer to stderr")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a preview of the page, rebuilt on every request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.page(nil)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Site.Listen
			}
			srv := site.NewServer(page, a.cfg.Site.StaticDir, a.logger)
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}
