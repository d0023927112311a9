package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

var topKFlag int

var queryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Run hybrid retrieval and print the ranked candidates",
	Long: `Runs hybrid semantic+lexical retrieval for the query and prints the
ranked candidates with their scores. Reranking and context assembly are
skipped; use "ask" for the full pipeline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&topKFlag, "top-k", "k", 0, "number of candidates to return (default from config)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if querySvc == nil {
		if err := setup(); err != nil {
			return err
		}
	}

	query := strings.Join(args, " ")
	opts := domain.RetrievalOptions{TopK: topKFlag}

	candidates, err := querySvc.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		cmd.Println("No results.")
		return nil
	}

	for i, c := range candidates {
		cmd.Printf("%2d. %s  score=%.4f (sem=%.4f lex=%.4f boost=%.2f)\n",
			i+1, c.ChunkID, c.CombinedScore, c.SemanticScore, c.LexicalScore, c.BoostApplied)
		cmd.Printf("    %s\n", snippet(c.Text, 120))
	}
	return nil
}

// snippet returns the first n runes of text on a single line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
