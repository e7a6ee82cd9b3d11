package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"plantscope/internal/config"
	"plantscope/internal/imagefile"
	"plantscope/internal/messages"
	"plantscope/internal/services/wikimedia"
	"plantscope/internal/session"
)

type identifyOutput struct {
	Session session.Snapshot          `json:"session"`
	Results []session.CandidateResult `json:"results"`
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var debug bool
	var jsonOut bool
	var raw bool
	var lang string

	cmd := &cobra.Command{
		Use:   "identify [image]",
		Short: "Identify the plant in a photo and list matching Wikipedia articles",
		Long: `Send a photo to Plant.id, then look up a Wikipedia article for each
suggested plant in the chosen language.

Examples:
  plantscope identify leaf.jpg
  plantscope identify leaf.jpg --lang fr
  plantscope identify --debug          # use the sample response, no API call
  plantscope identify leaf.jpg --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.messages()
			if err != nil {
				return err
			}
			articleLang := ctx.resolveLanguage(lang)
			loc := catalog.For(articleLang)
			stderr := cmd.ErrOrStderr()
			colorize := shouldColorize(stderr)

			var observer session.Observer
			if !jsonOut && !raw {
				observer = progressObserver(stderr, loc, colorize)
			}
			sess, err := ctx.newSession(cmd, articleLang, observer)
			if err != nil {
				return err
			}
			sess.SetDebug(debug)

			if len(args) == 1 {
				path, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				img, err := imagefile.Open(path)
				if err != nil {
					return localizedError(loc, err)
				}
				if err := sess.SelectImage(img); err != nil {
					return localizedError(loc, err)
				}
			}

			snap, err := sess.Identify(cmd.Context())
			if err != nil {
				return localizedError(loc, err)
			}

			switch {
			case raw:
				if len(snap.RawResponse) == 0 {
					return errors.New("no raw response recorded")
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(snap.RawResponse))
				return err
			case jsonOut:
				return writeJSON(cmd, identifyOutput{Session: snap, Results: snap.Results()})
			default:
				printIdentifyResult(cmd.OutOrStdout(), snap, loc, shouldColorize(cmd.OutOrStdout()))
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Use the sample Plant.id response instead of calling the API")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the session snapshot as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw Plant.id response")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Article language (defaults to config or locale)")
	cmd.MarkFlagsMutuallyExclusive("json", "raw")
	return cmd
}

func progressObserver(out io.Writer, loc *messages.Localizer, colorize bool) session.Observer {
	return func(snap session.Snapshot) {
		if !snap.Loading() {
			return
		}
		switch snap.State {
		case session.StateIdentifying:
			fmt.Fprintln(out, renderStatusLine("Plant.id", statusInfo, loc.Text(messages.Identifying, nil), colorize))
		case session.StateAwaitingArticles:
			fmt.Fprintln(out, renderStatusLine("Wikipedia", statusInfo, loc.Text(messages.LoadingArticles, nil), colorize))
		}
	}
}

func printIdentifyResult(out io.Writer, snap session.Snapshot, loc *messages.Localizer, colorize bool) {
	if snap.Debug {
		fmt.Fprintln(out, renderStatusLine("Mode", statusWarn, loc.Text(messages.DebugNotice, nil), colorize))
	}
	if snap.LookupError != "" {
		fmt.Fprintln(out, renderStatusLine("Wikipedia", statusWarn, loc.Text(messages.LookupFailed, nil), colorize))
	}

	printLines(out, renderSectionHeader(loc.Text(messages.SuggestionsHeading, nil), colorize))
	results := snap.Results()
	if len(results) == 0 {
		fmt.Fprintln(out, loc.Text(messages.NoCandidates, nil))
		return
	}
	for i, result := range results {
		fmt.Fprintf(out, "%d. %s\n", i+1, result.Candidate.Name)
		if snap.LookupError != "" {
			continue
		}
		if len(result.Articles) == 0 {
			fmt.Fprintf(out, "   %s\n", loc.NoneInLanguage())
			continue
		}
		for _, article := range result.Articles {
			fmt.Fprintf(out, "   %s\n", articleLine(article, loc))
		}
	}
}

func articleLine(article wikimedia.Article, loc *messages.Localizer) string {
	parts := []string{article.Name, article.URL}
	if article.Image == nil || strings.TrimSpace(article.Image.ContentURL) == "" {
		parts = append(parts, "("+loc.Text(messages.NoPreview, nil)+")")
	}
	return strings.Join(parts, "  ")
}

// userError carries a localized message while keeping the original chain
// available to errors.Is.
type userError struct {
	message string
	err     error
}

func (e *userError) Error() string { return e.message }
func (e *userError) Unwrap() error { return e.err }

func localizedError(loc *messages.Localizer, err error) error {
	if err == nil {
		return nil
	}
	return &userError{message: loc.Error(err), err: err}
}
