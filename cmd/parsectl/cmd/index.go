package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/handler"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/submit"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/sqlite"
	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/resilience"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		id    string
		title string
	)

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Parse a file and store its index",
		Long: `Store a file as a document and index it in the local SQLite database.
Indexing the same id again replaces the previous index.

Examples:
  parsectl index article.txt --id article-1
  parsectl index notes.md --title "Meeting notes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			content, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if id == "" {
				if args[0] == "-" {
					return fmt.Errorf("--id is required when reading stdin")
				}
				id = filepath.Base(args[0])
			}

			s, err := sqlite.NewStore(opts.cfg.SQLite.DataDir)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SaveDocument(ctx, store.Document{ID: id, Title: title, Content: content}); err != nil {
				return err
			}
			engine, pool := opts.newEngine(submit.New(s, resilience.CircuitBreakerConfig{}, nil))
			defer pool.Close()

			words, err := engine.Parse(ctx, index.Document{ID: id, Title: title, Content: content})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "indexed %s: %d words into %s\n", id, len(words), s.Path())
			return writeJSON(cmd.OutOrStdout(), handler.ParseResponse{DocumentID: id, Words: words})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Document id (default: file name)")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	return cmd
}
