// Package log provides the structured decision log of a transmit window gate.
//
// Every admission decision, window transition, override change, drain pass
// and administrative command can be captured as an Event. This is separate
// from operational logging (slog): the decision log is a complete,
// machine-readable trace that can be replayed offline to answer "why was
// this packet dropped at 02:13?".
//
// # Basic Usage
//
// The gate takes a Logger in its options:
//
//	// Development: print events through slog
//	opts.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append to a binary file
//	opts.EventLogger, _ = log.NewFileLogger("/var/log/txwindow/node.twlog")
//
//	// Both
//	opts.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Admission: one per submitted packet (AdmissionEvent)
//   - Transition: the effective window opened or closed (TransitionEvent)
//   - Override: an override was set, cleared or expired (OverrideEvent)
//   - Drain: a drain pass finished (DrainEvent)
//   - Command: an administrative command was handled (CommandEvent)
//
// Every event carries the RunID of the gate that produced it, so logs from
// several restarts can share one file.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys. The
// txwindow-log tool views and summarizes them.
package log
