package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/forgewalk/forge/internal/schemaload"
	"github.com/forgewalk/forge/pkg/forge"
)

var runCmd = &cobra.Command{
	Use:   "run <schema.yaml>",
	Short: "Start a fresh walk from a tree schema file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)
		ctx := context.Background()

		tree, err := schemaload.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID, _ := cmd.Flags().GetString("session-id")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		startKey, _ := cmd.Flags().GetString("start-key")
		if startKey == "" {
			startKey = tree.RootKey
		}

		status, walkErr := a.manager.StartOrResume(ctx, sessionID, tree, startKey)
		return printWalkResult(sessionID, status, walkErr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("session-id", "", "Session identifier to use (random UUID if omitted)")
	runCmd.Flags().String("start-key", "", "Node key to start from (defaults to the tree's rootKey)")
}

func printWalkResult(sessionID string, status forge.WalkStatus, walkErr error) error {
	out := map[string]any{
		"session_id": sessionID,
		"status":     string(status),
	}
	if walkErr != nil {
		out["error"] = walkErr.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	return nil
}
