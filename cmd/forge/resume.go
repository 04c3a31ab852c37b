package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgewalk/forge/internal/schemaload"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id> <schema.yaml>",
	Short: "Resume a previously started walk by session ID",
	Long:  `Resume rehydrates a session from the configured state store and continues the walk from wherever it last made durable progress. The tree schema must be the same one the session was started with.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)
		ctx := context.Background()

		if cfg.DBPath == "" {
			return fmt.Errorf("resume requires --db pointing at the session's durable state store")
		}

		sessionID := args[0]
		tree, err := schemaload.LoadFile(args[1])
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		startKey, _ := cmd.Flags().GetString("start-key")
		if startKey == "" {
			startKey = tree.RootKey
		}

		status, walkErr := a.manager.Resume(ctx, sessionID, tree, startKey)
		return printWalkResult(sessionID, status, walkErr)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().String("start-key", "", "Node key to resume from if no rehydration state is found (defaults to the tree's rootKey)")
}
