package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wharflabs/wharf/domain"
)

var validProjectName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register the current directory as a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	name := filepath.Base(cwd)
	if len(args) > 0 && args[0] != "" {
		name = args[0]
	}
	if !validProjectName.MatchString(name) {
		return fmt.Errorf("invalid project name %q: use only letters, numbers, hyphens, and underscores", name)
	}

	repo, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	port, err := repo.NextFreePort()
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating project id: %w", err)
	}

	project := &domain.Project{
		ID:        id,
		Name:      name,
		Path:      cwd,
		Port:      port,
		Framework: detectFramework(cwd),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateProject(project); err != nil {
		return err
	}

	fmt.Printf("Added %q -> port %d", name, port)
	if project.Framework != "" {
		fmt.Printf(" (%s)", project.Framework)
	}
	fmt.Println()
	return nil
}

// detectFramework tags the project with a best-effort framework guess based
// on marker files in its directory.
func detectFramework(dir string) string {
	markers := []struct {
		file string
		tag  string
	}{
		{"vite.config.js", "vite"},
		{"vite.config.ts", "vite"},
		{"next.config.js", "next"},
		{"next.config.ts", "next"},
		{"nuxt.config.ts", "nuxt"},
		{"angular.json", "angular"},
		{"Gemfile", "rails"},
		{"artisan", "laravel"},
		{"manage.py", "django"},
		{"package.json", "node"},
		{"go.mod", "go"},
	}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker.file)); err == nil {
			return marker.tag
		}
	}
	return ""
}
