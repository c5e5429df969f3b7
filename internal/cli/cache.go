package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/cache"
	"github.com/matzehuels/dopflow/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached graphs, layouts and artifacts",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry from the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cc, err := newCache(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer cc.Close()

			cl, ok := cc.(cache.Clearer)
			if !ok {
				printInfo("Cache backend %q holds nothing to clear", cfg.Cache.Backend)
				return nil
			}
			count, err := cl.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", count)
			switch cfg.Cache.Backend {
			case config.CacheRedis:
				printDetail("Redis: %s", cfg.Cache.RedisAddr)
			default:
				if dir, err := cfg.CacheDir(); err == nil {
					printDetail("Directory: %s", dir)
				}
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir, err := cfg.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count live cached entries per kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cc, err := newCache(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer cc.Close()

			s, ok := cc.(cache.Summarizer)
			if !ok {
				printInfo("Cache backend %q keeps no entries", cfg.Cache.Backend)
				return nil
			}
			counts, err := s.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("cache stats: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, kind := range []cache.Kind{cache.KindGraph, cache.KindLayout, cache.KindArtifact, cache.KindOther} {
				fmt.Fprintf(out, "%-9s %d\n", kind, counts[kind])
			}
			return nil
		},
	}
}
