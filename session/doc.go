// Package session drives a print job through the printer's raster
// protocol: it sequences commands from the protocol package over a
// transport, consumes decoded status replies, and tracks the job through
// a single-threaded state machine with bounded retries and bounded waits.
//
// One Session owns one transport for its lifetime. Sessions targeting
// different devices share no state and may run concurrently.
package session
