package cli

import (
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove orphaned vectors from the index",
	Long: `Removes vector index entries that no active tracked entry references.
Orphans are leftovers from interrupted updates; pruning them is safe at
any time.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if ingestor == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	pruned, err := ingestor.PruneOrphans(cmd.Context())
	if err != nil {
		return err
	}

	if pruned == 0 {
		cmd.Println("No orphaned chunks found.")
	} else {
		cmd.Printf("Pruned %d orphaned chunks.\n", pruned)
	}
	return nil
}
