// Package wikimedia talks to the Wikimedia Enterprise On-Demand API.
//
// TokenManager owns the short-lived access token and refreshes it through the
// auth service when it is about to expire or when the article endpoint rejects
// it. Client looks up encyclopedia articles by exact title, one title at a
// time, and returns them index-aligned with the requested names so callers can
// zip results with their candidate list. SelectForLanguage narrows a result
// list to Wikipedia links in the reader's language.
package wikimedia
