// Package messages holds the user-facing strings shown by the CLI and the
// JSON API, translated into English, French, German and Spanish.
//
// Error values are mapped to message IDs by their services marker, so the
// wording shown to users stays stable while error chains stay detailed.
package messages
