// Package remoting implements the remote store exporter/importer bridge
// and the companion clock-synchronization sub-protocol (spec §4.G, §6):
// a transport-agnostic handshake followed by the same envelope+length+
// bytes framing the persisted store uses, so an importer can write
// received records straight into a store.Store.
package remoting

import "errors"

// ErrProtocolVersionMismatch terminates the connection it's returned on;
// the caller may retry with a compatible client.
var ErrProtocolVersionMismatch = errors.New("remoting: protocol version mismatch")

// ErrMultiplePrimaryClocks is fatal to the pipeline: a federation may
// have only one primary clock source.
var ErrMultiplePrimaryClocks = errors.New("remoting: multiple primary clocks detected")

// ProtocolVersion is the handshake version this implementation speaks.
// A mismatched peer version fails the handshake with
// ErrProtocolVersionMismatch rather than attempting to negotiate.
const ProtocolVersion int16 = 1
