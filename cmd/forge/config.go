package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds forge CLI configuration. Priority: env vars > settings.json
// > defaults.
type Config struct {
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	PoolSize   int    `json:"pool_size"`
	VaultKey   string `json:"vault_passphrase"`
	VaultSalt  string `json:"vault_salt"`
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		PoolSize: 10,
	}
}

func forgeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forge"
	}
	return filepath.Join(home, ".forge")
}

func settingsPath() string {
	return filepath.Join(forgeDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	if v := os.Getenv("FORGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FORGE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("FORGE_VAULT_PASSPHRASE"); v != "" {
		cfg.VaultKey = v
	}
	if v := os.Getenv("FORGE_VAULT_SALT"); v != "" {
		cfg.VaultSalt = v
	}

	return cfg
}
