package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/bootstrap"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	profile  string
	driver   string
	dataPath string
	timezone string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Daily quote and reading streak from the command line",
		Long: `quotectl reads and updates the same profile the daily-quote service serves.

Example usage:
  quotectl today                 # Show today's quote
  quotectl today --view          # Show it and count today toward the streak
  quotectl search -c habits      # Quotes in the habits category
  quotectl save q001             # Save a quote
  quotectl stats                 # Totals and next week's projection`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.profile, "profile", profile, "config profile (configs/<profile>.yaml)")
	flags.StringVar(&c.driver, "storage", "", "storage driver override: memory, file, badger, redis, sqlite")
	flags.StringVar(&c.dataPath, "data", "", "storage path override")
	flags.StringVar(&c.timezone, "timezone", "", "IANA timezone used for day boundaries")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		c.todayCmd(),
		c.randomCmd(),
		c.searchCmd(),
		c.categoriesCmd(),
		c.streakCmd(),
		c.recapCmd(),
		c.historyCmd(),
		c.collectCmd("save", "Save a quote", (*app.CollectionService).Save),
		c.collectCmd("unsave", "Remove a quote from the saved list", (*app.CollectionService).Unsave),
		c.collectCmd("like", "Like a quote", (*app.CollectionService).Like),
		c.collectCmd("unlike", "Remove a quote from the liked list", (*app.CollectionService).Unlike),
		c.listCmd(domain.CollectionSaved),
		c.listCmd(domain.CollectionLiked),
		c.statsCmd(),
	)

	return root
}

// run opens the profile, calls fn and prints its result as JSON.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *bootstrap.App) (any, error)) (err error) {
	cfg, err := config.Load(c.profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.driver != "" {
		cfg.Storage.Driver = c.driver
	}

	if c.dataPath != "" {
		cfg.Storage.Path = c.dataPath
	}

	if c.timezone != "" {
		cfg.Selector.Timezone = c.timezone
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   level,
		Format:  "pretty",
		Service: "quotectl",
		Version: Version,
	}, cmd.ErrOrStderr())

	ctx := logging.WithContext(cmd.Context(), logger)

	a, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing storage: %w", closeErr)
		}
	}()

	out, err := fn(ctx, a)
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// todayOutput is the today command's result; Streak is set with --view.
type todayOutput struct {
	app.DailyQuote

	Streak *domain.StreakRecord `json:"streak,omitempty"`
}

func (c *cli) todayCmd() *cobra.Command {
	var force, view bool

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				out := todayOutput{DailyQuote: a.Quotes.GetQuoteByDay(ctx, force)}
				if !view {
					return out, nil
				}

				rec, err := a.Engagement.RecordView(ctx, out.Quote)
				if err != nil {
					return nil, err
				}

				out.Streak = &rec

				return out, nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "select again instead of using the stored quote")
	cmd.Flags().BoolVar(&view, "view", false, "record a view of the quote")

	return cmd
}

func (c *cli) randomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Show a random quote without changing today's",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Quotes.GetRandomQuote(ctx), nil
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var q app.SearchQuery

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search quote text and authors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Text = args[0]
			}

			if q.Limit < 0 || q.Limit > app.MaxSearchLimit {
				return domain.NewValidationErrorWithValue("limit",
					fmt.Sprintf("must be between 0 and %d", app.MaxSearchLimit), q.Limit)
			}

			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Quotes.Search(ctx, q), nil
			})
		},
	}

	cmd.Flags().StringVarP(&q.Category, "category", "c", "", "only quotes in this category")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", app.DefaultSearchLimit, "maximum results")

	return cmd
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with their quote counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Quotes.Categories(ctx), nil
			})
		},
	}
}

func (c *cli) streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the reading streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Engagement.GetStreak(ctx), nil
			})
		},
	}
}

func (c *cli) recapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recap",
		Short: "Summarise the last seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Engagement.GetWeeklyRecap(ctx)
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List viewed quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Engagement.History(ctx), nil
			})
		},
	}
}

type collectFunc func(*app.CollectionService, context.Context, string) (app.CollectionResult, error)

func (c *cli) collectCmd(use, short string, fn collectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <quote-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return fn(a.Collections, ctx, args[0])
			})
		},
	}
}

func (c *cli) listCmd(name domain.CollectionName) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: fmt.Sprintf("List %s quotes", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Collections.List(ctx, name), nil
			})
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals, top categories and authors, and next week's projection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, a *bootstrap.App) (any, error) {
				return a.Stats.Summary(ctx)
			})
		},
	}
}
