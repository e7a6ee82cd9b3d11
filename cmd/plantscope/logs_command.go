package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plantscope/internal/logging"
	"plantscope/internal/logs"
)

const followWait = 5 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var sessionID string
	var component string
	var level string
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the plantscope log, optionally for one identification session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return errors.New("no log directory configured")
			}
			filter := logs.Filter{
				SessionID: strings.TrimSpace(sessionID),
				Component: strings.TrimSpace(component),
				MinLevel:  logging.ParseLevel(level),
			}
			if strings.TrimSpace(level) == "" {
				filter.MinLevel = logging.ParseLevel("debug")
			}
			out := cmd.OutOrStdout()

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			printLogLines(out, result.Lines, filter, rawJSON)
			if !follow {
				return nil
			}
			offset := result.Offset
			for {
				result, err = logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Follow: true, Wait: followWait})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				printLogLines(out, result.Lines, filter, rawJSON)
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show from the end of the log")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show entries for this session ID (prefix allowed)")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries from this component")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print matching lines as stored JSON")
	return cmd
}

func printLogLines(out io.Writer, lines []string, filter logs.Filter, rawJSON bool) {
	for _, line := range lines {
		entry, ok := logs.ParseEntry(line)
		if !ok {
			continue
		}
		if !filter.Match(entry) {
			continue
		}
		if rawJSON {
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, logs.Format(entry))
	}
}
