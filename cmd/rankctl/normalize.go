package main

import (
	"context"
	"fmt"

	"github.com/cateradmin/api/internal/rank"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Renumber damaged partitions to 1..N and persist",
	Long:  "Load the catalog, renumber partitions with duplicate or missing positions keeping their current order, and write the result.",
	Args:  cobra.NoArgs,
	RunE:  runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	session, release, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer release()

	snap := session.Snapshot()
	if len(snap.Repairs) == 0 {
		fmt.Printf("%s: %d items, nothing to repair\n", snap.Scheme, snap.Items)
		return nil
	}

	partitions := make(map[rank.PartitionKey]rank.Attributes, len(snap.Partitions))
	for _, p := range snap.Partitions {
		partitions[p.Key] = p.Attributes
	}

	for _, r := range snap.Repairs {
		fmt.Printf("repaired %s\n", r.Error())
		if verbose {
			key, items := session.Partition(partitions[r.Key])
			printPartition(key, items)
		}
	}

	if dryRun {
		fmt.Println()
		fmt.Println("(DRY RUN - no changes applied)")
		return nil
	}
	if err := session.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist: %w", err)
	}
	fmt.Printf("Persisted %d positions across %d repaired partitions\n", snap.Items, len(snap.Repairs))
	return nil
}
