package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subburn/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				tbl := newTextTable("Run", "Started", "Model", "Task", "Videos", "Failed", "Duration").alignRight(4, 5, 6)
				for _, run := range runs {
					tbl.row(
						run.ID,
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						run.Model,
						run.Task,
						strconv.Itoa(run.Total),
						strconv.Itoa(run.Failed),
						runState(run),
					)
				}
				fmt.Fprintln(out, tbl.render(out))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-video results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runID := strings.TrimSpace(args[0])
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				records, err := store.RunOutcomes(cmd.Context(), runID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s, %s, language %s)\n", run.ID, run.Model, run.Task, run.Language)
				tbl := newTextTable("#", "Video", "Result", "Output", "Time").alignRight(0, 4)
				for _, rec := range records {
					result := rec.Kind
					detail := rec.OutputPath
					if rec.FailedStage != "" {
						result = "failed (" + rec.FailedStage + ")"
						detail = rec.ErrorMessage
					} else if detail == "" {
						detail = rec.SubtitlePath
					}
					tbl.row(
						strconv.Itoa(rec.Position),
						filepath.Base(rec.SourcePath),
						result,
						detail,
						formatElapsed(rec.Duration),
					)
				}
				fmt.Fprintln(out, tbl.render(out))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of runs to delete")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Pipeline.HistoryEnabled {
		return errors.New("run history is disabled (pipeline.history_enabled = false)")
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func runState(run history.Run) string {
	if !run.Finished() {
		return "incomplete"
	}
	return formatElapsed(run.Duration())
}
