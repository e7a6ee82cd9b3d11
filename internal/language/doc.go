// Package language derives the two-letter language code used to filter
// encyclopedia articles and pick message translations.
//
// Preferences come from explicit configuration, POSIX locale variables, or an
// HTTP Accept-Language header. Each is parsed as a BCP 47 tag and reduced to
// its base subtag ("fr-CA" and "fr_CA.UTF-8" both become "fr"). Detection
// never fails: without a usable preference the result is "en".
package language
