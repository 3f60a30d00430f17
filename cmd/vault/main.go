package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/splax/cybervault/pkg/api/client"
)

const defaultAPIBase = "http://localhost:5000"

var buildVersion = "dev"

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var apiOverride string

var rootCmd = &cobra.Command{
	Use:           "vault",
	Short:         "Command line client for the CyberVault API",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       buildVersion,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiOverride, "api", "", "API base URL (default "+defaultAPIBase+")")
	rootCmd.AddCommand(loginCmd, didCmd, docCmd, statsCmd, statusCmd, operationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() (*apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return apiclient.New(resolveAPIBase(apiOverride, cfg), apiclient.WithToken(cfg.AccessToken))
}

func resolveAPIBase(override string, cfg cliConfig) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("VAULT_API")); v != "" {
		return v
	}
	if cfg.APIBaseURL != "" {
		return cfg.APIBaseURL
	}
	return defaultAPIBase
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	return readConfig(path)
}

func readConfig(path string) (cliConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

func writeConfig(path string, cfg cliConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cybervault", "config.json"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
