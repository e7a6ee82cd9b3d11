// Package server exposes a Session over a small local JSON API so a browser
// front end can drive identification.
//
// Endpoints:
//
//	POST /api/identify  multipart "image" (optional) and "debug"; runs an attempt
//	POST /api/select    multipart "image"; validates and selects without identifying
//	GET  /api/session   current snapshot
//	GET  /api/history   recent attempts (when history is enabled)
//	GET  /api/health    liveness
//
// Responses carry localized messages chosen from the "lang" parameter or the
// Accept-Language header. When an API token is configured every endpoint
// except health requires "Authorization: Bearer <token>".
package server
