// Package protocol defines the binary wire format spoken over the
// websocket: a msgpack envelope carrying a kind byte and a kind-specific
// body. Both directions use the same envelope; each side only accepts the
// kinds the other is allowed to send.
package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Version is sent in the welcome message so clients can detect builds they
// cannot talk to.
const Version = "0.3"

type Kind uint8

// Client -> server.
const (
	KindHello Kind = iota + 1
	KindMoveMyEntity
	KindRequestChunk
	KindUnloadedChunk
)

// Server -> client.
const (
	KindWelcome Kind = iota + 32
	KindYourEntityMoved
	KindEntityMoved
	KindProvideChunk
	KindChangeTile
	KindProvideEntity
	KindShouldUnloadEntity
)

// Message is any decoded wire message.
type Message interface {
	Kind() Kind
}

type envelope struct {
	K uint8              `msgpack:"k"`
	B msgpack.RawMessage `msgpack:"b"`
}

func Encode(msg Message) ([]byte, error) {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(envelope{K: uint8(msg.Kind()), B: body})
}

// DecodeClient decodes a frame received from a client. Unknown or
// server-only kinds are protocol errors.
func DecodeClient(b []byte) (Message, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	var msg Message
	switch Kind(env.K) {
	case KindHello:
		msg = &Hello{}
	case KindMoveMyEntity:
		msg = &MoveMyEntity{}
	case KindRequestChunk:
		msg = &RequestChunk{}
	case KindUnloadedChunk:
		msg = &UnloadedChunk{}
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownKind, env.K)
	}
	if err := msgpack.Unmarshal(env.B, msg); err != nil {
		return nil, fmt.Errorf("%w: kind %d: %v", ErrBadBody, env.K, err)
	}
	return msg, nil
}

// DecodeServer decodes a frame received from the server, for client-side
// use (bots, tests).
func DecodeServer(b []byte) (Message, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	var msg Message
	switch Kind(env.K) {
	case KindWelcome:
		msg = &Welcome{}
	case KindYourEntityMoved:
		msg = &YourEntityMoved{}
	case KindEntityMoved:
		msg = &EntityMoved{}
	case KindProvideChunk:
		msg = &ProvideChunk{}
	case KindChangeTile:
		msg = &ChangeTile{}
	case KindProvideEntity:
		msg = &ProvideEntity{}
	case KindShouldUnloadEntity:
		msg = &ShouldUnloadEntity{}
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownKind, env.K)
	}
	if err := msgpack.Unmarshal(env.B, msg); err != nil {
		return nil, fmt.Errorf("%w: kind %d: %v", ErrBadBody, env.K, err)
	}
	return msg, nil
}
