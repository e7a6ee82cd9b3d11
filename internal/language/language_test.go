package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"no preference", nil, "en"},
		{"blank", []string{"", "  "}, "en"},
		{"region stripped", []string{"fr-CA"}, "fr"},
		{"uppercase", []string{"EN-us"}, "en"},
		{"posix locale", []string{"de_DE.UTF-8"}, "de"},
		{"posix modifier", []string{"ca_ES@valencia"}, "ca"},
		{"C locale skipped", []string{"C", "es-MX"}, "es"},
		{"POSIX locale skipped", []string{"POSIX"}, "en"},
		{"script subtag", []string{"zh-Hant-TW"}, "zh"},
		{"first usable wins", []string{"und", "pt-BR", "fr"}, "pt"},
		{"three letter base", []string{"fil-PH"}, "fil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.prefs...); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.prefs, got, tt.want)
			}
		})
	}
}

func TestFromEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"empty", map[string]string{}, "en"},
		{"lang only", map[string]string{"LANG": "fr_CA.UTF-8"}, "fr-ca"},
		{"lc_all beats lang", map[string]string{"LC_ALL": "it_IT.UTF-8", "LANG": "fr_FR.UTF-8"}, "it-it"},
		{"language list", map[string]string{"LANGUAGE": "nl:en", "LANG": "fr_FR.UTF-8"}, "nl"},
		{"c locale falls through", map[string]string{"LC_ALL": "C", "LANG": "ja_JP.UTF-8"}, "ja-jp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			if got := FromEnvironment(lookup); got != tt.want {
				t.Errorf("FromEnvironment() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := FromEnvironment(nil); got != "en" {
		t.Errorf("FromEnvironment(nil) = %q, want en", got)
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"de-DE,de;q=0.9,en;q=0.8", "de-de"},
		{"en;q=0.5,fr-CA;q=0.9", "fr-ca"},
		{"*", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := FromAcceptLanguage(tt.header); got != tt.want {
				t.Errorf("FromAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestLocale(t *testing.T) {
	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"no preference", nil, "en"},
		{"region kept", []string{"pt-BR"}, "pt-br"},
		{"posix locale", []string{"fr_CA.UTF-8"}, "fr-ca"},
		{"base only", []string{"DE"}, "de"},
		{"script kept", []string{"zh-Hant-TW"}, "zh-hant-tw"},
		{"C locale skipped", []string{"C", "es-MX"}, "es-mx"},
		{"und skipped", []string{"und", "it"}, "it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Locale(tt.prefs...); got != tt.want {
				t.Errorf("Locale(%q) = %q, want %q", tt.prefs, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "English"},
		{"fr", "French"},
		{"de", "German"},
		{"", "Unknown"},
		{"!!", "!!"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayNameIn(t *testing.T) {
	if got := DisplayNameIn("fr", "fr"); got != "français" {
		t.Errorf("DisplayNameIn(fr, fr) = %q", got)
	}
	if got := DisplayNameIn("de", "en"); got != "German" {
		t.Errorf("DisplayNameIn(de, en) = %q", got)
	}
}
