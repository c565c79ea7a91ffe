// Command memorybrain is the CLI for the tiered memory engine: saving
// memories, ingesting session transcripts, querying across tiers, and
// running the consolidation lifecycle.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openclaw/memorybrain/pkg/core"
	"github.com/openclaw/memorybrain/pkg/significance"
	"github.com/openclaw/memorybrain/pkg/tier"
)

var (
	configPath  string
	verbose     bool
	lexicalOnly bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func newBrain() (*core.Brain, *zap.Logger, error) {
	logger := newLogger()
	cfg := core.LoadConfig(configPath, logger)

	var opts []core.BrainOption
	if lexicalOnly {
		opts = append(opts, core.WithLexicalOnly())
	}
	brain, err := core.NewBrain(cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return brain, logger, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "memorybrain",
		Short:         "Tiered memory consolidation and retrieval engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to JSON config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().BoolVar(&lexicalOnly, "lexical-only", false, "disable the embedding backend")

	cmd.AddCommand(
		saveCmd(),
		ingestCmd(),
		queryCmd(),
		consolidateCmd(),
		pruneCmd(),
		discoverCmd(),
		quarantineCmd(),
		validateCmd(),
		rejectCmd(),
		conflictsCmd(),
		indexCmd(),
		statusCmd(),
		scheduleCmd(),
	)
	return cmd
}

func saveCmd() *cobra.Command {
	var category, importance string
	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: "Save a memory to today's daily file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			path, err := brain.SaveMemory(cmd.Context(), args[0],
				core.WithCategory(category), core.WithImportance(importance))
			if err != nil {
				return err
			}
			fmt.Println("Saved to", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "general", "memory category")
	cmd.Flags().StringVar(&importance, "importance", "normal", "importance level")
	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file.jsonl>",
		Short: "Ingest a session transcript (one JSON turn per line)",
		Long: `Ingest reads role-tagged turns, one JSON object per line
({"role": ..., "text": ..., "timestamp": ...}), filters them for
significance, and appends the keepers to their daily files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := readTurns(args[0])
			if err != nil {
				return err
			}

			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			report, err := brain.Ingest(cmd.Context(), turns)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d of %d turns (%d skipped)\n",
				report.Kept, report.Seen, report.Skipped)
			return nil
		},
	}
	return cmd
}

// readTurns parses a JSONL transcript. Malformed lines are skipped so
// one bad record never aborts the batch.
func readTurns(path string) ([]significance.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var turns []significance.Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var turn significance.Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, scanner.Err()
}

func queryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <term>",
		Short: "Search memories across all tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			res, err := brain.Query(cmd.Context(), args[0], core.WithLimit(limit))
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "max semantic hits")
	return cmd
}

func consolidateCmd() *cobra.Command {
	var weekOf string
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Distill a week of daily files into a weekly summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart := tier.WeekStartFor(time.Now())
			if weekOf != "" {
				t, err := time.Parse(tier.DateLayout, weekOf)
				if err != nil {
					return fmt.Errorf("invalid --week-of date: %w", err)
				}
				weekStart = tier.WeekStartFor(t)
			}

			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			sum, err := brain.Consolidate(cmd.Context(), weekStart)
			if err != nil {
				return err
			}
			if sum == nil {
				fmt.Println("No daily files in window, nothing to consolidate")
				return nil
			}
			fmt.Printf("Consolidated %d daily files into %s\n", sum.DailyFilesRead, sum.File)
			return nil
		},
	}
	cmd.Flags().StringVar(&weekOf, "week-of", "", "any date (YYYY-MM-DD) inside the week to consolidate")
	return cmd
}

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Archive daily files past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			res, err := brain.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d daily files, kept %d\n", res.Pruned, res.Kept)
			return nil
		},
	}
}

func discoverCmd() *cobra.Command {
	var auto bool
	cmd := &cobra.Command{
		Use:   "discover <text>",
		Short: "Extract candidate entity names from text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			if auto {
				records, err := brain.AutoQuarantine(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Quarantined %d candidate entities\n", len(records))
				return nil
			}
			for _, name := range brain.Discover(args[0]) {
				fmt.Println(name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&auto, "quarantine", false, "quarantine every discovered candidate")
	return cmd
}

func quarantineCmd() *cobra.Command {
	var discoveryContext string
	cmd := &cobra.Command{
		Use:   "quarantine [name]",
		Short: "List pending entities, or quarantine a named one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			if len(args) == 0 {
				return printJSON(brain.QuarantineList())
			}
			rec, err := brain.Quarantine(args[0], discoveryContext)
			if err != nil {
				return err
			}
			fmt.Println("Quarantined", rec.Name, "->", rec.File)
			return nil
		},
	}
	cmd.Flags().StringVar(&discoveryContext, "context", "", "discovery context note")
	return cmd
}

func validateCmd() *cobra.Command {
	var collection string
	var keywords []string
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Promote a quarantined entity to a durable record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			var opts []core.ValidateOption
			if collection != "" {
				opts = append(opts, core.WithCollection(collection))
			}
			if len(keywords) > 0 {
				opts = append(opts, core.WithKeywords(keywords...))
			}
			rec, err := brain.Validate(args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Println("Validated", rec.Name, "->", rec.File)
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "target collection")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "routing keywords")
	return cmd
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <name>",
		Short: "Discard a quarantined entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			if err := brain.Reject(args[0]); err != nil {
				return err
			}
			fmt.Println("Rejected", args[0])
			return nil
		},
	}
}

func conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts <query>",
		Short: "Check retrieved memories for contradictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			conflicts, err := brain.DetectConflicts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				fmt.Println("No conflicts detected")
				return nil
			}
			fmt.Println(brain.ConflictQuestion(conflicts))
			return nil
		},
	}
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Re-embed every tier file into the vector backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			report, err := brain.Index(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a snapshot of the memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, _, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			report, err := brain.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the lifecycle jobs on their cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			brain, logger, err := newBrain()
			if err != nil {
				return err
			}
			defer brain.Close()

			svc, err := brain.Scheduler()
			if err != nil {
				return err
			}
			svc.Start()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			logger.Info("shutting down")
			svc.Stop()
			return nil
		},
	}
}
