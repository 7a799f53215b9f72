package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/cache"
	pkgredis "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/redis"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared Redis parse cache",
		Long: `Parse results are cached in Redis by content hash. The key does not
change when normalization rules do, so flush the cache after upgrading a
parser whose output differs.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Remove every cached parse result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, closeFn, err := opts.redisCache()
			if err != nil {
				return err
			}
			defer closeFn()
			deleted, err := r.Invalidate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached results\n", deleted)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget <file>",
		Short: "Remove the cached result for one document's content",
		Long: `Remove the cached result for the content of <file>. Use "-" to read
the content from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			r, closeFn, err := opts.redisCache()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := r.Forget(cmd.Context(), content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", cache.Key(content))
			return nil
		},
	})
	return cmd
}

func (o *rootOptions) redisCache() (*cache.Redis, func(), error) {
	client, err := pkgredis.NewClient(o.cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", o.cfg.Redis.Addr, err)
	}
	return cache.NewRedis(client, o.cfg.Redis.CacheTTL), func() { client.Close() }, nil
}
