package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgewalk/forge/pkg/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve a Model Context Protocol stdio server exposing forge_walk/forge_status/forge_cancel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcpserver.NewServer(mcpserver.ServerDeps{Manager: a.manager, Logger: a.logger})
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
