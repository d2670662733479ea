// Package window implements the daily transmit window of a mesh-radio node.
//
// # Overview
//
// A node may be restricted to transmit only during a configured time-of-day
// interval. Outside that interval, outbound packets are dropped, queued, or
// refused depending on the admission mode. This package holds the window
// configuration and the pure evaluator that decides whether the window is
// open for a given clock reading.
//
// # Time of Day
//
// Times are minute-of-day values in [0, 1440). Seconds are ignored. The
// clock reading is converted using the configured location (default: local
// time).
//
// # Evaluation Rules
//
//   - Disabled window: always open (unrestricted operation)
//   - start < end: open iff start <= now < end
//   - start > end: window spans midnight, open iff now >= start || now < end
//   - start == end: never open (zero-length window)
//
// The zero-length case is deliberate. A window from 08:00 to 08:00 does not
// mean "all day"; disable the window for unrestricted operation.
//
// # Admission Modes
//
//   - DROP: outbound packets are discarded while closed
//   - QUEUE: outbound packets are held in a bounded priority queue
//   - RECEIVE_ONLY: transmit is refused while closed, reception continues
package window
