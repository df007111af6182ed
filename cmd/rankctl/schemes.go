package main

import (
	"fmt"
	"strings"

	"github.com/cateradmin/api/internal/config"
	"github.com/spf13/cobra"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List the configured catalog schemes",
	Args:  cobra.NoArgs,
	RunE:  runSchemes,
}

func runSchemes(cmd *cobra.Command, args []string) error {
	schemes, err := config.LoadSchemes(schemesFile)
	if err != nil {
		return fmt.Errorf("failed to load schemes: %w", err)
	}

	for _, s := range schemes {
		fields := strings.Join(s.Fields, ", ")
		if fields == "" {
			fields = "(single partition)"
		}
		fmt.Printf("%-22s %s\n", s.Name, fields)
		if verbose {
			fmt.Printf("  list:    %s\n", s.ListPath)
			fmt.Printf("  persist: %s\n", s.PersistPath)
			fmt.Printf("  table:   %s\n", s.Table)
		}
	}
	return nil
}
