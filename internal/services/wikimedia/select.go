package wikimedia

import (
	"regexp"
	"strings"

	"plantscope/internal/language"
)

var wikipediaURL = regexp.MustCompile(`wikipedia\.org/wiki/`)

// SelectForLanguage keeps Wikipedia articles written in lang. An exact
// identifier match wins; otherwise articles in the base language of lang are
// used. Articles in other languages are never returned.
func SelectForLanguage(articles []Article, lang string) []Article {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = language.Default
	}
	selected := filterLanguage(articles, lang)
	if len(selected) > 0 {
		return selected
	}
	if base := language.Detect(lang); base != lang {
		return filterLanguage(articles, base)
	}
	return selected
}

func filterLanguage(articles []Article, lang string) []Article {
	out := make([]Article, 0, len(articles))
	for _, article := range articles {
		if strings.ToLower(article.LanguageCode) != lang {
			continue
		}
		if !IsWikipediaURL(article.URL) {
			continue
		}
		out = append(out, article)
	}
	return out
}

// IsWikipediaURL reports whether u points at a Wikipedia article page.
func IsWikipediaURL(u string) bool {
	return wikipediaURL.MatchString(u)
}
