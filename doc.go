// Package nbsp implements the non-blocking bidirectional small-package
// protocol: a one-word-outstanding, ack-driven, ring-buffered channel
// protocol for cooperative single-threaded event loops.
//
// The design goes back to the USB-Audio 2.0 Device Reference Design by
// XMOS, where 32-bit MIDI messages are sent over a channel and the sender
// waits for an acknowledgement before sending the next one. This package
// generalizes that idea: both ends of a channel ("players") can be senders,
// receivers, or both, and pending outgoing words are buffered so a caller
// never blocks on Send except when explicitly flushing.
//
// A second variant, UDDW (unidirectional double-word), trades the
// send/receive symmetry for roughly 4-8x the throughput by streaming two
// payload words per round-trip with no leading control token. The two
// variants must not be mixed on the same channel and state.
package nbsp
