package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	moveID       string
	movePosition int
	movePersist  bool
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move one item to a new position within its partition",
	Long:  "Move an item and renumber its partition. Positions past either end are clamped. Use --persist to write the result.",
	Args:  cobra.NoArgs,
	RunE:  runMove,
}

func init() {
	moveCmd.Flags().StringVar(&moveID, "id", "", "item id (required)")
	moveCmd.Flags().IntVar(&movePosition, "position", 0, "new 1-based position (required)")
	moveCmd.Flags().BoolVar(&movePersist, "persist", false, "write the new positions to the backend")
	_ = moveCmd.MarkFlagRequired("id")
	_ = moveCmd.MarkFlagRequired("position")
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	session, release, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer release()

	items, err := session.Move(moveID, movePosition)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", moveID, err)
	}

	key := session.Scheme().Partitioning().KeyOf(items[0].Attributes)
	printPartition(key, items)

	if !movePersist || dryRun {
		fmt.Println()
		fmt.Println("(not persisted)")
		return nil
	}
	if err := session.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist: %w", err)
	}
	fmt.Printf("Persisted %d positions\n", session.Snapshot().Items)
	return nil
}
