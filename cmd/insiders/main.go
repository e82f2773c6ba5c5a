// insiders crawls SEC EDGAR Form 4 filings, tracks every dispatched chunk in
// an audit ledger and flags issuers with clustered insider buying.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/edgarinsiders/internal/config"
	"github.com/seenimoa/edgarinsiders/internal/edgar"
	"github.com/seenimoa/edgarinsiders/internal/log"
	"github.com/seenimoa/edgarinsiders/internal/metrics"
	"github.com/seenimoa/edgarinsiders/internal/pipeline"
	"github.com/seenimoa/edgarinsiders/internal/store"
	"github.com/seenimoa/edgarinsiders/pkg/models"
	"github.com/seenimoa/edgarinsiders/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "insiders",
	Short: "EDGAR insider transaction pipeline",
	Long: `insiders collects the daily Form 4 filers from SEC EDGAR, dispatches them
in chunks over NATS JetStream, scrapes their ownership reports, validates the
run against its audit ledger and reports clustered insider buying.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		log.Init(log.Config{
			Level:      log.Level(cfg.Logging.Level),
			JSONOutput: cfg.Logging.Format == "json",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(analyseCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(companiesCmd)
	rootCmd.AddCommand(fetchCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("insiders %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		fmt.Println()
		fmt.Println("credentials:")
		for _, k := range config.CheckSecrets(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("  %-25s %s\n", k.Name+":", status)
		}
		return nil
	},
}

// --- Dispatch Command ---

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Collect the day's Form 4 filers and publish them in chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag(cmd)
		if err != nil {
			return err
		}
		source, _ := cmd.Flags().GetString("source")
		requestID, _ := cmd.Flags().GetString("request-id")

		return run(cmd.Context(), true, func(a *app) error {
			var ciks []models.CIK
			switch source {
			case "index":
				ciks, err = a.orch.SyncDailyIndex(cmd.Context(), day)
			case "feed":
				ciks, err = a.orch.SyncCurrentFeed(cmd.Context(), day)
			default:
				return fmt.Errorf("unknown source %q (want index or feed)", source)
			}
			if err != nil {
				return err
			}
			n, err := a.orch.Dispatch(cmd.Context(), ciks, day, requestID)
			if err != nil {
				return err
			}
			fmt.Printf("dispatched %d chunks for %d CIKs on %s\n", n, len(ciks), utils.FormatDate(day))
			return nil
		})
	},
}

func init() {
	dispatchCmd.Flags().String("date", "", "EDGAR date (YYYY-MM-DD, default: today in New York)")
	dispatchCmd.Flags().String("source", "index", "CIK universe: index (daily master index) or feed (current filings)")
	dispatchCmd.Flags().String("request-id", "", "request id shared by every chunk (default: new uuid)")
}

// --- Consume Command ---

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Process dispatched chunks until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("metrics-addr")
		if addr == "" {
			addr = cfg.Metrics.Addr
		}

		return run(cmd.Context(), true, func(a *app) error {
			if addr != "" {
				srv := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.logger.Info().Str("addr", addr).Msg("serving metrics")
			}
			return a.queue.Consume(cmd.Context(), a.orch.Consume)
		})
	},
}

func init() {
	consumeCmd.Flags().String("metrics-addr", "", "listen address for /metrics (default: metrics.addr)")
}

// --- Validate Command ---

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit a day's ledger and alert on, or retry, unfinished chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag(cmd)
		if err != nil {
			return err
		}
		fix := cfg.Pipeline.FixMode
		if cmd.Flags().Changed("fix") {
			fix, _ = cmd.Flags().GetBool("fix")
		}

		return run(cmd.Context(), true, func(a *app) error {
			report, err := a.orch.ValidateResults(cmd.Context(), pipeline.ValidateOptions{
				Date:         day,
				FixMode:      fix,
				RetrySubject: cfg.Queue.RetrySubject,
				Delay:        cfg.Pipeline.DispatchDelay,
				SubChunkSize: cfg.Pipeline.SubChunkSize,
			})
			if err != nil {
				return err
			}
			for _, msg := range report.Alerts {
				fmt.Println("ALERT", msg)
			}
			for _, m := range report.Republished {
				fmt.Printf("resent %s %s (%d CIKs)\n", m.RequestID, m.ChunkID, len(m.CIK))
			}
			return nil
		})
	},
}

func init() {
	validateCmd.Flags().String("date", "", "EDGAR date (YYYY-MM-DD, default: today in New York)")
	validateCmd.Flags().Bool("fix", false, "republish unprocessed chunks as sub-chunks instead of alerting")
}

// --- Analyse Command ---

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Score the day's issuers for clustered insider buying",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag(cmd)
		if err != nil {
			return err
		}
		threshold := cfg.Pipeline.ClusterThreshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}

		return run(cmd.Context(), true, func(a *app) error {
			findings, err := a.orch.Analyse(cmd.Context(), day, threshold)
			if err != nil {
				return err
			}
			for _, f := range findings {
				fmt.Printf("%s  %-10d insiders=%.0f baseline=%.2f ratio=%.2f\n",
					f.Date, f.Signal.CIK, f.Signal.PurchaseMagnitude, f.Signal.PurchaseBaseline, f.Signal.PurchaseRatio)
			}
			fmt.Printf("%d findings on %s\n", len(findings), utils.FormatDate(day))
			return nil
		})
	},
}

func init() {
	analyseCmd.Flags().String("date", "", "EDGAR date (YYYY-MM-DD, default: today in New York)")
	analyseCmd.Flags().Float64("threshold", 0, "distinct-buyer threshold (default: pipeline.cluster_threshold)")
}

// --- Results Command ---

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print the findings stored for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dateFlag(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), false, func(a *app) error {
			findings, err := a.store.GetResults(cmd.Context(), day)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Printf("no results stored for %s\n", utils.FormatDate(day))
				return nil
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(findings)
		})
	},
}

func init() {
	resultsCmd.Flags().String("date", "", "EDGAR date (YYYY-MM-DD, default: today in New York)")
}

// --- Companies Command ---

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Refresh the company directory for the configured states",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")
		return run(cmd.Context(), false, func(a *app) error {
			if list {
				companies, err := a.store.ListCompanies(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range companies {
					fmt.Printf("%-10s %-3s %s\n", c.CIK, c.State, c.Name)
				}
				return nil
			}
			n, err := a.orch.SyncCompanies(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("stored %d companies from %d states\n", n, len(cfg.EDGAR.States))
			return nil
		})
	},
}

func init() {
	companiesCmd.Flags().Bool("list", false, "print the stored directory instead of refreshing it")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:       "fetch owner|issuer|state <id>",
	Short:     "Scrape one ownership report or state directory and print it",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"owner", "issuer", "state"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id := args[0], args[1]
		return scrape(func(c *edgar.Client) error {
			var result any
			switch ft := models.FileType(kind); {
			case ft.Valid():
				cik, err := strconv.ParseInt(id, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid CIK %q: %w", id, err)
				}
				result = c.FetchTransactions(cmd.Context(), ft, cik)
			case kind == "state":
				result = c.FetchCompaniesByState(cmd.Context(), id, "")
			default:
				return fmt.Errorf("unknown report %q (want owner, issuer or state)", kind)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		})
	},
}

// dateFlag reads --date, defaulting to the current EDGAR business date.
func dateFlag(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("date")
	if s == "" {
		return utils.Today(), nil
	}
	return utils.ParseDate(s)
}
