// tickerbrief - AI financial analysis with a reflective archive.
// Runs daily ticker analyses, archives them, and periodically reflects on
// the archive to surface patterns and trends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tickerbrief/tickerbrief/internal/alphavantage"
	"github.com/tickerbrief/tickerbrief/internal/analysis"
	"github.com/tickerbrief/tickerbrief/internal/archive"
	"github.com/tickerbrief/tickerbrief/internal/config"
	"github.com/tickerbrief/tickerbrief/internal/llm"
	"github.com/tickerbrief/tickerbrief/internal/models"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired collaborators shared by the commands.
type app struct {
	cfg       *config.Config
	llm       *llm.Client
	store     *archive.Store
	fetcher   *alphavantage.Client
	pipeline  *analysis.Pipeline
	reflector *analysis.Reflector
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLMAPIKey,
		Endpoint:       cfg.LLMEndpoint,
		Model:          cfg.LLMModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.LLMTimeout,
		MaxAttempts:    cfg.LLMMaxAttempts,
		BackoffBase:    cfg.LLMBackoffBase,
	})

	store, err := archive.NewStore(ctx, cfg.MongoURI, cfg.MongoDB, client)
	if err != nil {
		return nil, err
	}

	temp := float32(cfg.Temperature)
	return &app{
		cfg:       cfg,
		llm:       client,
		store:     store,
		fetcher:   alphavantage.NewClient(cfg.AlphaVantageAPIKey),
		pipeline:  analysis.NewPipeline(client, temp),
		reflector: analysis.NewReflector(client, cfg.FacetWorkers, temp),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tickerbrief",
		Short: "AI financial analysis with a reflective archive",
		Long: `tickerbrief runs a multi-stage AI analysis over a ticker's news and
price data, archives each analysis as a searchable record, and reflects on
the archive over weekly/monthly/quarterly windows to surface trends.`,
		SilenceUsage: true,
	}

	root.AddCommand(newDailyCmd(), newReflectCmd(), newSearchCmd(), newHistoryCmd())
	return root
}

func newDailyCmd() *cobra.Command {
	var articles int
	var noSave bool

	cmd := &cobra.Command{
		Use:   "daily TICKER",
		Short: "Run the daily analysis pipeline for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ticker := strings.ToUpper(args[0])

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			news, err := a.fetcher.StockNews(ctx, ticker, articles)
			if err != nil {
				return fmt.Errorf("fetch news: %w", err)
			}
			prices, err := a.fetcher.DailySeries(ctx, ticker)
			if err != nil {
				log.Warn().Err(err).Msg("Price data unavailable, continuing without it")
			}
			market, err := a.fetcher.MarketNews(ctx, []string{"economy_macro", "technology"}, 20)
			if err != nil {
				log.Warn().Err(err).Msg("Market news unavailable, continuing without it")
			}

			rec, err := a.pipeline.RunDaily(ctx, ticker, news, prices, market)
			if err != nil {
				return err
			}

			printRecord(rec)

			if noSave {
				return nil
			}
			id, err := a.store.Write(ctx, rec)
			if err != nil {
				// The analysis text above is already printed; the
				// caller may re-attempt the write.
				return fmt.Errorf("analysis produced but not archived: %w", err)
			}
			log.Info().Str("id", id).Msg("Archived")
			return nil
		},
	}

	cmd.Flags().IntVar(&articles, "articles", 25, "number of news articles to analyze")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip archiving the result")
	return cmd
}

func newReflectCmd() *cobra.Command {
	var ticker, period string
	var days int
	var noSave bool

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: "Reflect on archived daily analyses over a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			back := days
			if back <= 0 {
				switch period {
				case "month":
					back = 30
				case "quarter":
					back = 90
				default:
					back = 7
				}
			}
			end := time.Now()
			start := end.AddDate(0, 0, -back)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			records, err := a.store.QueryRange(ctx,
				start.Format(models.DateFormat), end.Format(models.DateFormat),
				strings.ToUpper(ticker))
			if err != nil {
				return err
			}

			rec, err := a.reflector.RunReflection(ctx, records, strings.ToUpper(ticker), period)
			if errors.Is(err, analysis.ErrInsufficientHistory) {
				return fmt.Errorf("no archived analyses in the last %d days; run daily analysis first", back)
			}
			if err != nil {
				return err
			}

			printRecord(rec)

			if noSave {
				return nil
			}
			id, err := a.store.Write(ctx, rec)
			if err != nil {
				return fmt.Errorf("reflection produced but not archived: %w", err)
			}
			log.Info().Str("id", id).Msg("Archived")
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker to reflect on (empty = whole portfolio)")
	cmd.Flags().StringVar(&period, "period", "week", "period type: week, month, or quarter")
	cmd.Flags().IntVar(&days, "days", 0, "override the lookback window in days")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip archiving the result")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var ticker string
	var k int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Semantic search over archived analyses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			results, err := a.store.Search(ctx, query, strings.ToUpper(ticker), k, nil)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No matching analyses.")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s %s (%s)\n", i+1, r.Score, r.Record.Date, r.Record.Ticker, r.Record.Type)
				fmt.Println(excerpt(r.Record.Body, 240))
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "restrict search to one ticker")
	cmd.Flags().IntVar(&k, "k", 5, "number of results")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var ticker string
	var days int
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived analyses in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			end := time.Now()
			start := end.AddDate(0, 0, -days)

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			query := a.store.QueryRange
			if all {
				query = a.store.QueryRangeAll
			}
			records, err := query(ctx,
				start.Format(models.DateFormat), end.Format(models.DateFormat),
				strings.ToUpper(ticker))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No archived analyses in range.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %-6s %-18s %s\n", rec.Date, rec.Ticker, rec.Type, excerpt(rec.Body, 80))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "restrict to one ticker")
	cmd.Flags().IntVar(&days, "days", 30, "lookback window in days")
	cmd.Flags().BoolVar(&all, "all", false, "include reflection records")
	return cmd
}

func printRecord(rec *models.AnalysisRecord) {
	fmt.Println(strings.Repeat("=", 78))
	if rec.Type == models.AnalysisDaily {
		fmt.Printf("ANALYSIS: %s (%s)\n", rec.Ticker, rec.Date)
	} else {
		target := rec.Ticker
		if target == "" {
			target = "portfolio"
		}
		fmt.Printf("REFLECTION: %s, %s to %s (%d days)\n", target, rec.PeriodStart, rec.PeriodEnd, rec.DayCount)
	}
	fmt.Println(strings.Repeat("=", 78))
	fmt.Println(rec.Body)
	if len(rec.LowConfidence) > 0 {
		fmt.Printf("\nLow-confidence sections: %s\n", strings.Join(rec.LowConfidence, ", "))
	}
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
