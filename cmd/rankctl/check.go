package main

import (
	"context"
	"fmt"

	"github.com/cateradmin/api/internal/rank"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every partition is numbered 1..N",
	Long:  "Fetch the catalog as stored and report partitions with duplicate, missing or out of range positions. Nothing is changed.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	scheme, err := loadScheme()
	if err != nil {
		return err
	}
	backend, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	items, err := backend.List(ctx, scheme)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", scheme.Name, err)
	}

	if err := rank.ValidateAll(scheme.Partitioning(), items); err != nil {
		verrs, ok := rank.AsValidationErrors(err)
		if !ok {
			return err
		}
		printValidation(verrs)
		return fmt.Errorf("%s has %d invalid partitions", scheme.Name, len(verrs))
	}

	fmt.Printf("%s: %d items, all partitions valid\n", scheme.Name, len(items))
	return nil
}
