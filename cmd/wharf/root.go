package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wharflabs/wharf/db"
)

var configDirFlag string

var rootCmd = &cobra.Command{
	Use:   "wharf",
	Short: "Local development proxy for .test domains",
	Long: `wharf maps friendly hostnames like myapp.test to development servers
running on arbitrary local ports.

Register a project from its directory with "wharf add", then run
"wharf serve" (requires privileges for ports 80/443) and open
http://<name>.test in a browser.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Override the configuration directory")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// configDir resolves the wharf configuration directory, defaulting to
// <user config dir>/wharf.
func configDir() (string, error) {
	if configDirFlag != "" {
		return configDirFlag, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(base, "wharf"), nil
}

// openRegistry opens (creating if needed) the project registry under the
// configuration directory.
func openRegistry() (*db.Repository, string, error) {
	dir, err := configDir()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, "", fmt.Errorf("creating config dir %s: %w", dir, err)
	}

	dbConn, err := db.New(filepath.Join(dir, "wharf.db"))
	if err != nil {
		return nil, "", fmt.Errorf("opening project registry: %w", err)
	}
	return db.NewProjectRepo(dbConn), dir, nil
}
