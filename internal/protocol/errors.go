package protocol

import "errors"

// Decoding failures. All of them are protocol violations: the connection
// that produced one is closed rather than resynchronized.
var (
	ErrBadEnvelope = errors.New("malformed message envelope")
	ErrUnknownKind = errors.New("unknown message kind")
	ErrBadBody     = errors.New("malformed message body")
)
