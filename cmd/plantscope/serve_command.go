package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plantscope/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API for a browser front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Server.Bind = strings.TrimSpace(bind)
			}
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			catalog, err := ctx.messages()
			if err != nil {
				return err
			}
			sess, err := ctx.newSession(cmd, ctx.resolveLanguage(""), nil)
			if err != nil {
				return err
			}
			var hist server.HistoryLister
			if store, err := ctx.historyStore(); err != nil {
				return err
			} else if store != nil {
				hist = store
			}

			srv, err := server.New(cfg, sess, hist, catalog, logger)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving plantscope API on http://%s\n", srv.Addr())
			<-runCtx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured bind address")
	return cmd
}
