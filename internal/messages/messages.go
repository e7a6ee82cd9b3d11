package messages

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	xlanguage "golang.org/x/text/language"

	"plantscope/internal/imagefile"
	"plantscope/internal/language"
	"plantscope/internal/services"
	"plantscope/internal/services/plantid"
	"plantscope/internal/session"
)

//go:embed locales/*.toml
var locales embed.FS

// Message IDs.
const (
	NotImage           = "not_image"
	NoImage            = "no_image"
	ConfigMissing      = "config_missing"
	SampleFailed       = "sample_failed"
	IdentifyFailed     = "identify_failed"
	KeyRejected        = "key_rejected"
	RateLimited        = "rate_limited"
	EncodingFailed     = "encoding_failed"
	LookupFailed       = "lookup_failed"
	UnknownError       = "unknown_error"
	Identifying        = "identifying"
	LoadingArticles    = "loading_articles"
	SuggestionsHeading = "suggestions_heading"
	NoCandidates       = "no_candidates"
	NoneInLanguage     = "none_in_language"
	NoPreview          = "no_preview"
	DebugNotice        = "debug_notice"
)

// Catalog is the loaded set of translations.
type Catalog struct {
	bundle *i18n.Bundle
}

// Load parses the embedded translation files.
func Load() (*Catalog, error) {
	bundle := i18n.NewBundle(xlanguage.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(locales, path.Join("locales", entry.Name())); err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
	}
	return &Catalog{bundle: bundle}, nil
}

// MustLoad is Load for package-level initialisation.
func MustLoad() *Catalog {
	catalog, err := Load()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Languages lists the translated language tags.
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

// For returns a Localizer for lang; unknown languages fall back to English.
func (c *Catalog) For(lang string) *Localizer {
	lang = language.Detect(lang)
	return &Localizer{
		lang:      lang,
		localizer: i18n.NewLocalizer(c.bundle, lang),
	}
}

// Localizer renders messages in one language.
type Localizer struct {
	lang      string
	localizer *i18n.Localizer
}

// Language returns the language code the localizer was built for.
func (l *Localizer) Language() string {
	return l.lang
}

// Text renders a message. Unknown IDs render as the ID itself.
func (l *Localizer) Text(id string, data map[string]any) string {
	text, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil || text == "" {
		return id
	}
	return text
}

// NoneInLanguage renders the empty-article notice with the language's name.
func (l *Localizer) NoneInLanguage() string {
	return l.Text(NoneInLanguage, map[string]any{"Language": language.DisplayNameIn(l.lang, l.lang)})
}

// Error renders the user-facing message for err, or "" for nil.
func (l *Localizer) Error(err error) string {
	if err == nil {
		return ""
	}
	id := IDForError(err)
	switch id {
	case IdentifyFailed, KeyRejected, RateLimited:
		return l.Text(id, map[string]any{"Detail": requestDetail(err)})
	}
	return l.Text(id, nil)
}

// IDForError maps an error chain to a message ID.
func IDForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, imagefile.ErrNotImage):
		return NotImage
	case errors.Is(err, session.ErrNoSelection):
		return NoImage
	case errors.Is(err, services.ErrLookup):
		return LookupFailed
	case errors.Is(err, services.ErrConfiguration):
		return ConfigMissing
	case errors.Is(err, services.ErrLoad):
		return SampleFailed
	case errors.Is(err, services.ErrEncoding):
		return EncodingFailed
	case plantid.IsStatus(err, http.StatusUnauthorized), plantid.IsStatus(err, http.StatusForbidden):
		return KeyRejected
	case plantid.IsStatus(err, http.StatusTooManyRequests):
		return RateLimited
	case errors.Is(err, services.ErrRequest):
		return IdentifyFailed
	case errors.Is(err, services.ErrValidation):
		return NotImage
	default:
		return UnknownError
	}
}

func requestDetail(err error) string {
	var statusErr *plantid.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Body != "" {
			return statusErr.Body
		}
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	}
	if cause := errors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}
