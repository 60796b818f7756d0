// Command scanhub drives the scan ingestion pipeline from the
// command line. It stands in for the UI layer: it reads already
// parsed JSON documents and renders the resulting import report or
// aggregate summary.
//
// Usage:
//
//	scanhub import scan1.json scan2.json
//	scanhub summary scan1.json
//	scanhub stats
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SFDataHub/scanhub/internal/config"
	"github.com/SFDataHub/scanhub/internal/ingest"
	"github.com/SFDataHub/scanhub/internal/store"
	"github.com/SFDataHub/scanhub/internal/summary"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "scanhub",
		Short: "Import and summarize community scan exports",
	}

	root.AddCommand(importCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(statsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json> [more files...]",
		Short: "Ingest scan exports into the local store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				importer := ingest.New(st, cfg.ScanNodeLimit, logger)
				failed := 0
				for _, path := range args {
					doc, err := readDocument(path)
					if err != nil {
						logger.Error("read document", "file", path, "error", err)
						failed++
						continue
					}
					report := importer.Import(ctx, doc)
					logger.Info("import report",
						"file", path,
						"type", orDash(report.DetectedType),
						"summary", report.Summary())
					for _, w := range report.Warnings {
						logger.Warn("import warning", "file", path, "warning", w)
					}
					for _, e := range report.Errors {
						logger.Error("import error", "file", path, "error", e)
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d imports reported errors", failed, len(args))
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// summary command
// --------------------------------------------------------------------------

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <file.json>",
		Short: "Compute aggregate statistics for one export without persisting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			s := summary.Summarize(doc, cfg.SummaryNodeLimit)
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("render summary: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// stats command
// --------------------------------------------------------------------------

func statsCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show row counts of the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithStore(func(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				counts, err := st.Counts(ctx)
				if err != nil {
					return err
				}
				logger.Info("store contents",
					"players", counts["players"], "guilds", counts["guilds"],
					"scans", counts["scans"], "links", counts["links"])
				if server != "" {
					players, err := st.PlayersByServer(ctx, server)
					if err != nil {
						return err
					}
					for _, p := range players {
						fmt.Printf("%s\t%s\n", p.Key, p.Name)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "List players of one server (upper-cased prefix)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithStore handles config loading, store lifecycle and signal
// cancellation. The store is opened exactly once per invocation.
func runWithStore(fn func(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return fn(ctx, cfg, st, logger)
}

func readDocument(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return doc, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
