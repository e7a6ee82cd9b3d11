package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plantscope/internal/language"
	"plantscope/internal/services/wikimedia"
)

type lookupResult struct {
	Name     string              `json:"name"`
	Articles []wikimedia.Article `json:"articles"`
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var lang string
	var all bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "lookup <plant name>...",
		Short: "Look up Wikipedia articles for plant names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.messages()
			if err != nil {
				return err
			}
			articleLang := ctx.resolveLanguage(lang)
			loc := catalog.For(articleLang)

			client, err := ctx.wikimediaClient(cmd)
			if err != nil {
				return err
			}
			lists, err := client.LookupArticles(cmd.Context(), args, articleLang)
			if err != nil {
				return localizedError(loc, err)
			}

			results := make([]lookupResult, len(args))
			for i, name := range args {
				articles := lists[i]
				if !all {
					articles = wikimedia.SelectForLanguage(articles, articleLang)
				}
				if articles == nil {
					articles = []wikimedia.Article{}
				}
				results[i] = lookupResult{Name: name, Articles: articles}
			}

			if jsonOut {
				return writeJSON(cmd, results)
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				if len(result.Articles) == 0 {
					rows = append(rows, []string{result.Name, loc.NoneInLanguage(), "", ""})
					continue
				}
				for _, article := range result.Articles {
					rows = append(rows, []string{result.Name, article.Name, language.DisplayName(article.LanguageCode), article.URL})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Plant", "Article", "Language", "URL"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Article language (defaults to config or locale)")
	cmd.Flags().BoolVar(&all, "all", false, "Show every returned article instead of only the chosen language")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}
