package wikimedia

import "testing"

func TestSelectForLanguage(t *testing.T) {
	articles := []Article{
		{Name: "Rosa FR", URL: "https://fr.wikipedia.org/wiki/Rosa", LanguageCode: "fr"},
		{Name: "Rosa EN", URL: "https://en.wikipedia.org/wiki/Rosa", LanguageCode: "en"},
		{Name: "Rose wiktionary", URL: "https://fr.wiktionary.org/wiki/rose", LanguageCode: "fr"},
		{Name: "No url", LanguageCode: "fr"},
		{Name: "Rosa PT-BR", URL: "https://pt.wikipedia.org/wiki/Rosa", LanguageCode: "pt-BR"},
		{Name: "Rosa PT", URL: "https://pt.wikipedia.org/wiki/Rosa_(planta)", LanguageCode: "pt"},
		{Name: "Rosa CA", URL: "https://fr.wikipedia.org/wiki/Rosier", LanguageCode: "fr-CA"},
	}

	tests := []struct {
		lang string
		want []string
	}{
		{"fr", []string{"Rosa FR"}},
		{"FR", []string{"Rosa FR"}},
		{"fr-CA", []string{"Rosa FR"}},
		{"en", []string{"Rosa EN"}},
		{"pt-br", []string{"Rosa PT-BR"}},
		{"pt", []string{"Rosa PT"}},
		{"pt-pt", []string{"Rosa PT"}},
		{"fr-ca", []string{"Rosa CA"}},
		{"de", nil},
		{"", []string{"Rosa EN"}},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got := SelectForLanguage(articles, tt.lang)
			if len(got) != len(tt.want) {
				t.Fatalf("SelectForLanguage(%q) returned %d articles, want %d", tt.lang, len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Fatalf("article %d = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestIsWikipediaURL(t *testing.T) {
	if !IsWikipediaURL("https://de.wikipedia.org/wiki/Tulpen") {
		t.Fatal("expected wikipedia url")
	}
	if IsWikipediaURL("https://example.org/wiki/Tulpen") {
		t.Fatal("unexpected match")
	}
}
