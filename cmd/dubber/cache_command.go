package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dubber/internal/config"
	"dubber/internal/services"
	"dubber/internal/synth"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the synthesis cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

// withFileCache opens the file cache for maintenance. Other backends manage
// their own eviction.
func withFileCache(cmd *cobra.Command, ctx *commandContext, fn func(*config.Config, *synth.FileCache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Backend != "file" {
		return services.Wrap(services.ErrConfiguration, "cache", "maintenance",
			fmt.Sprintf("cache commands require the file backend (configured: %q)", cfg.Cache.Backend), nil)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	cache, err := synth.OpenFileCache(cmd.Context(), cfg.SynthCacheDir(), cfg.Cache.Index, logger)
	if err != nil {
		return err
	}
	defer cache.Close()
	return fn(cfg, cache)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and hit counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFileCache(cmd, ctx, func(_ *config.Config, cache *synth.FileCache) error {
				stats, err := cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				hits := "-"
				if stats.Indexed {
					hits = strconv.FormatInt(stats.Hits, 10)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
					{"Root", stats.Root},
					{"Entries", strconv.Itoa(stats.Entries)},
					{"Size", formatBytes(stats.TotalBytes)},
					{"Hits", hits},
					{"Oldest", formatTime(stats.Oldest)},
					{"Newest", formatTime(stats.Newest)},
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var maxMiB int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict least recently used clips until the cache fits its size limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFileCache(cmd, ctx, func(cfg *config.Config, cache *synth.FileCache) error {
				limit := maxMiB
				if !cmd.Flags().Changed("max-mib") {
					limit = cfg.Cache.MaxMiB
				}
				if limit < 0 {
					return services.Wrap(services.ErrValidation, "cache", "prune", "max-mib must be >= 0", nil)
				}
				res, err := cache.Prune(cmd.Context(), int64(limit)<<20)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d clips (%s freed, %s remaining)\n",
					res.Removed, formatBytes(res.FreedBytes), formatBytes(res.Remaining))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxMiB, "max-mib", 0, "Size limit in MiB (defaults to cache.max_mib)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFileCache(cmd, ctx, func(_ *config.Config, cache *synth.FileCache) error {
				removed, err := cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d clips\n", removed)
				return nil
			})
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
