package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is returned when no preference yields a language.
const Default = "en"

// envKeys are consulted in order by FromEnvironment.
var envKeys = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// Detect returns the base language subtag of the first usable preference.
func Detect(prefs ...string) string {
	for _, pref := range prefs {
		if code, ok := baseCode(pref); ok {
			return code
		}
	}
	return Default
}

// Locale returns the first usable preference as a lower-case tag that keeps
// its script and region subtags, so "pt_BR.UTF-8" becomes "pt-br".
func Locale(prefs ...string) string {
	for _, pref := range prefs {
		if code, ok := localeCode(pref); ok {
			return code
		}
	}
	return Default
}

// FromEnvironment detects the locale from locale variables read through
// lookup (normally os.LookupEnv). The C and POSIX locales count as unset.
func FromEnvironment(lookup func(string) (string, bool)) string {
	if lookup == nil {
		return Default
	}
	prefs := make([]string, 0, len(envKeys))
	for _, key := range envKeys {
		if value, ok := lookup(key); ok {
			// LANGUAGE holds a colon-separated priority list.
			if first, _, _ := strings.Cut(value, ":"); first != "" {
				prefs = append(prefs, first)
			}
		}
	}
	return Locale(prefs...)
}

// FromAcceptLanguage detects the locale from an HTTP Accept-Language header,
// honouring quality weights.
func FromAcceptLanguage(header string) string {
	tags, _, err := xlanguage.ParseAcceptLanguage(header)
	if err != nil {
		return Default
	}
	prefs := make([]string, 0, len(tags))
	for _, tag := range tags {
		prefs = append(prefs, tag.String())
	}
	return Locale(prefs...)
}

// DisplayName returns the English name for a language code, or the uppercased
// code when it is not recognized.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	tag, err := xlanguage.Parse(code)
	if err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

// DisplayNameIn returns the name of code written in language in, falling back
// to the English name.
func DisplayNameIn(code, in string) string {
	tag, err := xlanguage.Parse(strings.TrimSpace(code))
	if err != nil {
		return DisplayName(code)
	}
	inTag, err := xlanguage.Parse(Detect(in))
	if err != nil {
		return DisplayName(code)
	}
	if namer := display.Languages(inTag); namer != nil {
		if name := namer.Name(tag); name != "" {
			return name
		}
	}
	return DisplayName(code)
}

func baseCode(pref string) (string, bool) {
	pref = normalizePOSIX(pref)
	if pref == "" {
		return "", false
	}
	tag, err := xlanguage.Parse(pref)
	if err != nil {
		return truncate(pref)
	}
	base, conf := tag.Base()
	if conf == xlanguage.No || base.String() == "und" {
		return "", false
	}
	return base.String(), true
}

func localeCode(pref string) (string, bool) {
	pref = normalizePOSIX(pref)
	if pref == "" {
		return "", false
	}
	tag, err := xlanguage.Parse(pref)
	if err != nil {
		return truncate(pref)
	}
	base, conf := tag.Base()
	if conf == xlanguage.No || base.String() == "und" {
		return "", false
	}
	return strings.ToLower(tag.String()), true
}

// normalizePOSIX turns "fr_CA.UTF-8@euro" into "fr-CA".
func normalizePOSIX(pref string) string {
	pref = strings.TrimSpace(pref)
	if idx := strings.IndexAny(pref, ".@"); idx >= 0 {
		pref = pref[:idx]
	}
	switch strings.ToUpper(pref) {
	case "", "C", "POSIX":
		return ""
	}
	return strings.ReplaceAll(pref, "_", "-")
}

// truncate handles tags x/text rejects: keep everything before the first
// region separator when it looks like a language subtag.
func truncate(pref string) (string, bool) {
	head, _, _ := strings.Cut(pref, "-")
	head = strings.ToLower(head)
	if len(head) < 2 || len(head) > 3 {
		return "", false
	}
	for _, r := range head {
		if r < 'a' || r > 'z' {
			return "", false
		}
	}
	return head, true
}
