package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var showSourcesFlag bool

var askCmd = &cobra.Command{
	Use:   "ask <text...>",
	Short: "Run the full pipeline and print the assembled context",
	Long: `Retrieves, reranks and assembles a token-budgeted context for the
query, then prints it together with the contributing chunk IDs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&showSourcesFlag, "sources", false, "print contributing chunk IDs")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if querySvc == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	assembled, err := querySvc.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	if len(assembled.Entries) == 0 {
		cmd.Println("No context could be assembled for this query.")
		return nil
	}

	cmd.Println(assembled.Text())
	cmd.Printf("\n[%d tokens of %d budget, %d chunks]\n",
		assembled.TotalTokens, assembled.Budget, len(assembled.Entries))

	if showSourcesFlag {
		for _, entry := range assembled.Entries {
			marker := ""
			if entry.Truncated {
				marker = " (truncated)"
			}
			cmd.Printf("  %d. %s%s\n", entry.Rank, entry.ChunkID, marker)
		}
	}
	return nil
}
