// Package wire defines the CBOR messages of the remote window protocol.
//
// A peer sends a Request naming one command; the node answers with a
// Response carrying a status code and, depending on the command, the
// window status or the statistics.
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness, matching the tight payload
// budget of a radio frame.
//
// # Timestamps
//
// Instants travel as Unix seconds (0 means "none"); durations travel as
// milliseconds.
package wire
