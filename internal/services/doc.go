// Package services defines shared utilities consumed by the upstream API
// clients and the session orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp session identifiers, component names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the validation/configuration/request/auth/lookup taxonomy surfaced
//     to users.
//
// Use these helpers when wiring new client logic so failure classification
// and log shape stay uniform across plantscope.
package services
