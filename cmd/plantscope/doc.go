// Package main hosts the plantscope CLI entrypoint and command graph.
//
// The Cobra command tree wraps the identification session for terminal use:
// identify a photo, look up Wikipedia articles by plant name, inspect and
// refresh the Wikimedia token, browse the attempt history, scaffold the
// configuration file, and serve the local JSON API.
package main
