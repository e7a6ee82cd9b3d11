// Package session sequences one identification attempt: validate the
// selected photo, identify it, then look up articles for every candidate.
//
// A Session is a small state machine (idle, identifying, awaiting_articles,
// articles_ready) guarded by a mutex so the CLI and the JSON API can share
// it. Observers receive a Snapshot on every transition, which lets callers
// show candidates while article lookups are still running. Starting a new
// attempt cancels the previous one and any late result from it is dropped.
package session
