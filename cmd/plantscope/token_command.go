package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plantscope/internal/services/wikimedia"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or refresh the Wikimedia access token",
	}
	tokenCmd.AddCommand(newTokenStatusCommand(ctx))
	tokenCmd.AddCommand(newTokenRefreshCommand(ctx))
	return tokenCmd
}

func newTokenStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which Wikimedia credentials are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.wikimediaClient(cmd)
			if err != nil {
				return err
			}
			status := client.Tokens().Status()
			if jsonOut {
				return writeJSON(cmd, status)
			}
			printLines(cmd.OutOrStdout(), tokenStatusLines(status, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print status as JSON")
	return cmd
}

func tokenStatusLines(status wikimedia.TokenStatus, colorize bool) []string {
	lines := renderSectionHeader("Wikimedia", colorize)

	if status.Username == "" {
		lines = append(lines, renderStatusLine("Username", statusWarn, "not configured", colorize))
	} else {
		lines = append(lines, renderStatusLine("Username", statusOK, status.Username, colorize))
	}
	lines = append(lines, credentialLine("Access token", status.HasAccessToken, colorize))
	lines = append(lines, credentialLine("Refresh token", status.HasRefreshToken, colorize))

	switch {
	case status.Expiry.IsZero():
		lines = append(lines, renderStatusLine("Expiry", statusInfo, "unknown until first refresh", colorize))
	case status.Expired:
		lines = append(lines, renderStatusLine("Expiry", statusWarn, "expired "+status.Expiry.Format(time.RFC3339), colorize))
	default:
		lines = append(lines, renderStatusLine("Expiry", statusOK, status.Expiry.Format(time.RFC3339), colorize))
	}
	return lines
}

func credentialLine(label string, present, colorize bool) string {
	if present {
		return renderStatusLine(label, statusOK, "configured", colorize)
	}
	return renderStatusLine(label, statusError, "missing", colorize)
}

func newTokenRefreshCommand(ctx *commandContext) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.wikimediaClient(cmd)
			if err != nil {
				return err
			}
			tokens := client.Tokens()
			if err := tokens.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh wikimedia token: %w", err)
			}
			token, err := tokens.Ensure(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Access token refreshed; expires %s\n", token.Expiry.Format(time.RFC3339))
			if show {
				fmt.Fprintf(out, "access_token = %q\n", token.AccessToken)
			} else {
				fmt.Fprintln(out, "Run with --show to print the token for your config file.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the new access token")
	return cmd
}
