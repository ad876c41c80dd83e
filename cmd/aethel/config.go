package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bkase/aethel/internal/platform"
)

const (
	configName   = "config"
	keyVaultPath = "vault_path"
)

// configDir returns $XDG_CONFIG_HOME/aethel, falling back to ~/.config/aethel.
func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "aethel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "aethel"), nil
}

func initConfig() {
	// .env in the working directory may set AETHEL_VAULT_PATH.
	_ = godotenv.Load()

	viper.SetConfigName(configName)
	viper.SetConfigType("json")
	if dir, err := configDir(); err == nil {
		viper.AddConfigPath(dir)
	}

	viper.SetEnvPrefix("AETHEL")
	viper.AutomaticEnv()
	_ = viper.BindPFlag(keyVaultPath, rootCmd.PersistentFlags().Lookup("vault"))

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// saveConfig records root as the default vault.
func saveConfig(root string) (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, configName+".json")
	viper.Set(keyVaultPath, root)
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return path, nil
}

var errNoVault = errors.New("no vault configured: run 'aethel init <path>' or pass --vault")

// vaultPath resolves the vault from --vault, AETHEL_VAULT_PATH, the config
// file, then the nearest vault above the working directory.
func vaultPath() (string, error) {
	if p := viper.GetString(keyVaultPath); p != "" {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := platform.FindRoot(cwd); err == nil {
		return root, nil
	}
	return "", errNoVault
}
