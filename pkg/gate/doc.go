// Package gate ties the transmit window together for one radio.
//
// A Gate owns the window configuration, the override, the packet queue and
// the statistics. Applications call Submit for every outbound packet and
// Tick (or Run) periodically; administrators use the setters, the override
// commands and Status, either locally or through ProtocolHandler.
//
// # Draining
//
// A drain pass runs on every Tick while the window is open. When a force-open,
// a cleared override or a configuration change opens the window, the backlog
// is drained at once instead of waiting for the next Tick.
//
// # Locking
//
// One mutex covers every evaluate, decide and mutate step, including the
// transmit calls made by a drain pass. Hold time is bounded by the drain
// budget. Event handlers run after the mutex is released and may call back
// into the gate.
//
// # Decision Log
//
// When Options.EventLogger is set, every admission, transition, override
// change, drain pass and remote command is written to it, tagged with the
// gate's run ID.
package gate
