package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/handler"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/normalizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/store/sqlite"
)

func newFindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <word>",
		Short: "Show where a word occurs in indexed documents",
		Long: `Look a word up in the local index. The word is normalized the same way
document content is, so "Café" finds "cafe".

Examples:
  parsectl find parser`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word, ok := tokenizer.FirstWord(normalizer.Normalize(args[0]))
			if !ok {
				return fmt.Errorf("%q contains no letters", args[0])
			}
			s, err := sqlite.NewStore(opts.cfg.SQLite.DataDir)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.FindByWord(cmd.Context(), word)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("word %q not found", word)
			}
			resp := handler.WordResponse{Word: word}
			for _, e := range entries {
				var offsets []int
				if err := json.Unmarshal([]byte(e.Offsets), &offsets); err != nil {
					return fmt.Errorf("decoding offsets of %q in %s: %w", word, e.DocumentID, err)
				}
				resp.Locations = append(resp.Locations, handler.WordLocation{DocumentID: e.DocumentID, Offsets: offsets})
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}
