package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a registered project",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	repo, _, err := openRegistry()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.DeleteProject(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %q\n", args[0])
	return nil
}
