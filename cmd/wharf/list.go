package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	repo, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	projects, err := repo.GetProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects registered. Run \"wharf add\" from a project directory.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPORT\tFRAMEWORK\tPATH")
	for _, project := range projects {
		framework := project.Framework
		if framework == "" {
			framework = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", project.Name, project.Port, framework, project.Path)
	}
	return tw.Flush()
}
