package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plantscope/internal/history"
	"plantscope/internal/language"
)

const shortIDLength = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded identification attempts",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if records == nil {
					records = []*history.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No attempts recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "Lang", "Image", "Top suggestion", "Articles", "Status"},
				historyRows(records),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum attempts to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}

func historyRows(records []*history.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		top := "-"
		if len(rec.Candidates) > 0 {
			top = rec.Candidates[0].Name
			if extra := len(rec.Candidates) - 1; extra > 0 {
				top = fmt.Sprintf("%s (+%d)", top, extra)
			}
		}
		image := rec.ImageName
		if rec.Debug {
			image = "(sample)"
		}
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Language,
			image,
			top,
			strconv.Itoa(rec.TotalArticles()),
			recordStatus(rec),
		})
	}
	return rows
}

func recordStatus(rec *history.Record) string {
	switch {
	case rec.Failed():
		if rec.ErrorKind != "" {
			return "failed (" + rec.ErrorKind + ")"
		}
		return "failed"
	case rec.LookupError != "":
		return "no articles"
	default:
		return "ok"
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one attempt; a unique ID prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("attempt %s not found", args[0])
			}
			if jsonOut {
				return writeJSON(cmd, rec)
			}
			printRecord(cmd.OutOrStdout(), rec, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the record as JSON")
	return cmd
}

func printRecord(out io.Writer, rec *history.Record, colorize bool) {
	lines := renderSectionHeader("Attempt "+rec.ID, colorize)
	lines = append(lines,
		renderStatusLine("Started", statusInfo, rec.CreatedAt.Local().Format(time.RFC3339), colorize),
		renderStatusLine("Language", statusInfo, fmt.Sprintf("%s (%s)", language.DisplayName(rec.Language), rec.Language), colorize),
		renderStatusLine("Debug", statusInfo, yesNo(rec.Debug), colorize),
	)
	if rec.ImageName != "" {
		lines = append(lines, renderStatusLine("Image", statusInfo, rec.ImageName, colorize))
	}
	if !rec.FinishedAt.IsZero() {
		lines = append(lines, renderStatusLine("Duration", statusInfo, rec.FinishedAt.Sub(rec.CreatedAt).Round(time.Millisecond).String(), colorize))
	}
	if rec.Failed() {
		lines = append(lines, renderStatusLine("Identify", statusError, rec.IdentifyError, colorize))
	}
	if rec.LookupError != "" {
		lines = append(lines, renderStatusLine("Lookup", statusWarn, rec.LookupError, colorize))
	}
	printLines(out, lines)

	if len(rec.Candidates) == 0 {
		return
	}
	rows := make([][]string, 0, len(rec.Candidates))
	for i, candidate := range rec.Candidates {
		count := "-"
		if i < len(rec.ArticleCounts) {
			count = strconv.Itoa(rec.ArticleCounts[i])
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), candidate.Name, count})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Candidate", "Articles"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			var removed int64
			if strings.TrimSpace(olderThan) == "" {
				removed, err = store.Clear(cmd.Context())
			} else {
				age, parseErr := parseAge(olderThan)
				if parseErr != nil {
					return parseErr
				}
				removed, err = store.Prune(cmd.Context(), time.Now().Add(-age))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d attempt(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "", "Only delete attempts older than this age (e.g. 72h or 30d)")
	return cmd
}

// parseAge accepts Go durations plus a whole-day "Nd" form.
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", value, err)
	}
	if age < 0 {
		return 0, errors.New("age must not be negative")
	}
	return age, nil
}
