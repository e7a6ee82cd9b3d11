package wikimedia

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Article is one encyclopedia entry returned by the On-Demand API.
type Article struct {
	Name         string          `json:"name"`
	URL          string          `json:"url,omitempty"`
	LanguageCode string          `json:"language,omitempty"`
	Image        *ArticleImage   `json:"image,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// ArticleImage is the lead image of an article.
type ArticleImage struct {
	ContentURL string `json:"content_url"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

type wireArticle struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	InLanguage *struct {
		Identifier string `json:"identifier"`
	} `json:"in_language"`
	Image *struct {
		ContentURL string  `json:"content_url"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
	} `json:"image"`
}

// decodeArticles normalises a response body: an object becomes a single
// article, an array is kept element by element, anything else is empty.
func decodeArticles(body []byte) ([]Article, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []Article{}, nil
	}
	switch trimmed[0] {
	case '{':
		article, err := decodeArticle(trimmed)
		if err != nil {
			return nil, err
		}
		return []Article{article}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode article list: %w", err)
		}
		articles := make([]Article, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				continue
			}
			article, err := decodeArticle(item)
			if err != nil {
				return nil, err
			}
			articles = append(articles, article)
		}
		return articles, nil
	default:
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("decode articles: invalid json")
		}
		return []Article{}, nil
	}
}

func decodeArticle(raw []byte) (Article, error) {
	var wire wireArticle
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Article{}, fmt.Errorf("decode article: %w", err)
	}
	article := Article{
		Name: wire.Name,
		URL:  wire.URL,
		Raw:  append(json.RawMessage(nil), raw...),
	}
	if wire.InLanguage != nil {
		article.LanguageCode = wire.InLanguage.Identifier
	}
	if wire.Image != nil && wire.Image.ContentURL != "" {
		article.Image = &ArticleImage{
			ContentURL: wire.Image.ContentURL,
			Width:      int(wire.Image.Width),
			Height:     int(wire.Image.Height),
		}
	}
	return article, nil
}
