// Package cli provides the command line interface.
//
//	recommendation-service serve                 # HTTP + gRPC health + sweep scheduler
//	recommendation-service sweep                 # remove expired cache entries once
//	recommendation-service clear-cache           # wipe every cached listing and query
//	recommendation-service cache-info [--stats]  # summarise cache contents
//	recommendation-service recommend <userID>    # print one user's recommendations
//
// Configuration comes from the environment (see internal/config).
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jobmate/recommendation-service/internal/app"
	"jobmate/recommendation-service/internal/config"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/recommend"
)

const version = "1.0.0"

type globalFlags struct {
	cacheBackend string
	logLevel     string
}

func BuildCLI() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "recommendation-service",
		Short:         "Tiered job retrieval and hybrid ranking for jobmate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.cacheBackend, "cache", "", "cache backend override: redis or memory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	rootCmd.AddCommand(buildServeCommand(&g))
	rootCmd.AddCommand(buildSweepCommand(&g))
	rootCmd.AddCommand(buildClearCommand(&g))
	rootCmd.AddCommand(buildInfoCommand(&g))
	rootCmd.AddCommand(buildRecommendCommand(&g))

	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (g *globalFlags) setup(ctx context.Context) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(ctx, func(c *config.Config) {
		if g.cacheBackend != "" {
			c.CacheBackend = g.cacheBackend
		}
		if g.logLevel != "" {
			c.LogLevel = g.logLevel
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

// ─── serve ──────────────────────────────────────────────────────────────────

func buildServeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health endpoint and sweep scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, cleanup, err := app.Initialize(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer cleanup()

			if err := a.Scheduler.Start(ctx); err != nil {
				return err
			}
			defer a.Scheduler.Stop()

			return a.Server.Run(ctx)
		},
	}
}

// ─── cache commands ─────────────────────────────────────────────────────────

func withCache(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, ops *app.CacheOps) (any, error)) error {
	ctx := cmd.Context()
	cfg, log, err := g.setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	ops, cleanup, err := app.InitializeCacheOps(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	out, err := fn(ctx, ops)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func buildSweepCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired query entries and job hashes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, g, func(ctx context.Context, ops *app.CacheOps) (any, error) {
				return ops.Cache.SweepExpired(ctx)
			})
		},
	}
}

func buildClearCommand(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete every cached job, query entry and cluster set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}
			return withCache(cmd, g, func(ctx context.Context, ops *app.CacheOps) (any, error) {
				n, err := ops.Cache.ClearAll(ctx)
				return map[string]int64{"cleared": n}, err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}

func buildInfoCommand(g *globalFlags) *cobra.Command {
	var stats, catalog bool
	cmd := &cobra.Command{
		Use:   "cache-info",
		Short: "Summarise cache contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(cmd, g, func(ctx context.Context, ops *app.CacheOps) (any, error) {
				info, err := ops.Cache.Info(ctx)
				if err != nil {
					return nil, err
				}
				out := map[string]any{"info": info}
				if stats {
					s, err := ops.Cache.Stats(ctx)
					if err != nil {
						return nil, err
					}
					out["stats"] = s
				}
				if catalog {
					out["categories"] = ops.Classifier.Categories()
					out["trustedCompanies"] = ops.Classifier.TrustedCompanies()
				}
				return out, nil
			})
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "include a breakdown of cached jobs")
	cmd.Flags().BoolVar(&catalog, "catalog", false, "include categories and trusted companies")
	return cmd
}

// ─── recommend ──────────────────────────────────────────────────────────────

func buildRecommendCommand(g *globalFlags) *cobra.Command {
	var opts recommend.Options
	cmd := &cobra.Command{
		Use:   "recommend <userID>",
		Short: "Print ranked recommendations for one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, cleanup, err := app.Initialize(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer cleanup()

			resp, err := a.Recommender.Recommend(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Limit, "limit", recommend.DefaultLimit, "candidates to rank")
	f.IntVar(&opts.PageSize, "page-size", recommend.DefaultPageSize, "recommendations to return; the rest are queued")
	f.StringVar(&opts.Keywords, "keywords", "", "search keywords for live fetch")
	f.StringVar(&opts.Location, "location", "", "location or region (usa, india, all)")
	f.StringVar(&opts.Filters.JobType, "type", "", "employment type filter")
	f.StringVar(&opts.Filters.Category, "category", "", "category filter")
	f.BoolVar(&opts.Filters.TrustedOnly, "trusted", false, "only trusted companies")
	f.BoolVar(&opts.ForceRefresh, "refresh", false, "force a live fetch")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := BuildCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
