package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/legaltts/legaltts/internal/pipeline"
	"github.com/legaltts/legaltts/internal/server"
)

var (
	addr       string
	watchServe bool

	serveCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP service",
		Long:    paragraph(fmt.Sprintf("\n%s the deduplicator and the document pipeline over HTTP. Documents posted to /v1/runs are narrated one at a time.", keyword("Serve"))),
		Example: paragraph("legaltts serve\nlegaltts serve --addr :8089 --engine mock"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			srv, closer, err := newServer()
			if err != nil {
				return err
			}
			defer closer() //nolint:errcheck
			return srv.Serve(ctx) //nolint:wrapcheck
		},
	}

	watchCmd = &cobra.Command{
		Use:     "watch DIR",
		Short:   "Narrate documents dropped into a directory",
		Long:    paragraph(fmt.Sprintf("\n%s DIR and narrate every .txt or .md document written to it, including those already there.", keyword("Watch"))),
		Example: paragraph("legaltts watch ~/inbox\nlegaltts watch --serve ~/inbox"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			srv, closer, err := newServer()
			if err != nil {
				return err
			}
			defer closer() //nolint:errcheck

			in, err := newInbox(args[0], srv, cfg.OutputDir, cfg.LogsDir)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if watchServe {
					return srv.Serve(gctx) //nolint:wrapcheck
				}
				return srv.RunWorker(gctx) //nolint:wrapcheck
			})
			g.Go(func() error {
				return in.Run(gctx)
			})
			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return err //nolint:wrapcheck
			}
			return nil
		},
	}
)

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "also run the HTTP service")
	watchCmd.Flags().StringVar(&addr, "addr", "", "listen address with --serve")
}

func newServer() (*server.Server, func() error, error) {
	c := cfg
	if addr != "" {
		c.Server.Addr = addr
	}
	p, err := pipeline.New(c)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	closer := func() error {
		writeMetrics(p)
		return p.Close() //nolint:wrapcheck
	}
	return server.New(c, p), closer, nil
}
