// Package imagefile loads user-selected photos and encodes them for the
// identification API.
//
// An Image carries the raw bytes alongside a sniffed content type so callers
// can reject non-image files before any network traffic happens. Encoding is
// plain standard base64 without a data URL prefix.
package imagefile
