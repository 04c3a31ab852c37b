package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge walks schema-defined action trees with crash-safe resume",
	Long:  `forge loads a YAML tree schema and drives it through the walker, persisting enough state to rehydrate a session after a crash.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to a libSQL database file for durable state (defaults to in-memory)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Int("pool-size", 10, "Maximum concurrent action invocations per session")
	rootCmd.PersistentFlags().String("vault-passphrase", "", "Passphrase used to derive the secrets vault's AES key")
	rootCmd.PersistentFlags().String("vault-salt", "", "Salt used alongside --vault-passphrase for key derivation")
}

func configFromFlags(cmd *cobra.Command) Config {
	cfg := loadConfig()

	if cmd.Flags().Changed("db") {
		cfg.DBPath, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("pool-size") {
		cfg.PoolSize, _ = cmd.Flags().GetInt("pool-size")
	}
	if cmd.Flags().Changed("vault-passphrase") {
		cfg.VaultKey, _ = cmd.Flags().GetString("vault-passphrase")
	}
	if cmd.Flags().Changed("vault-salt") {
		cfg.VaultSalt, _ = cmd.Flags().GetString("vault-salt")
	}

	return cfg
}
