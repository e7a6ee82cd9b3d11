// Package plantid submits photos to the Plant.id identification API.
//
// In debug mode the client answers from a bundled sample response (or a file
// named in configuration) and never contacts the network, which keeps the
// rest of the pipeline exercisable without an API key.
package plantid
