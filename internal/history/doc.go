// Package history persists finished identification attempts in SQLite.
//
// Each attempt becomes one row holding the candidates, how many articles
// each candidate received, any error text, and the raw identification
// response. The store implements session.Recorder so a Session can write to
// it directly. The schema is versioned; a mismatch asks the user to clear
// the history database rather than migrating it.
package history
