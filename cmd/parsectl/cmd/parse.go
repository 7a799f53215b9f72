package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/handler"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the words of a file with their offsets",
		Long: `Parse a file (or - for stdin) and print every word with its offsets
as JSON. Nothing is stored.

Examples:
  parsectl parse article.txt
  echo "Hello world" | parsectl parse -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			engine, pool := opts.newEngine(nil)
			defer pool.Close()

			words, err := engine.Analyze(cmd.Context(), content)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), handler.ParseResponse{DocumentID: id, Words: words})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Document id to echo in the output")
	return cmd
}
