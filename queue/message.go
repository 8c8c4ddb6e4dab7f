package queue

import (
	"sync/atomic"

	"github.com/c360/threadkit/errors"
)

// MaxContentSize is the fixed payload capacity of a message envelope,
// sized to a common network MTU minus protocol headers.
const MaxContentSize = 1024

// Type identifies the kind of payload a message carries.
type Type int

const (
	// TypeCommand carries a text command
	TypeCommand Type = iota
	// TypeData carries binary data
	TypeData
	// TypeRelay carries data to be forwarded without modification
	TypeRelay
	// TypeControl carries an internal control message
	TypeControl
)

// String returns a string representation of the message type
func (t Type) String() string {
	switch t {
	case TypeCommand:
		return "command"
	case TypeData:
		return "data"
	case TypeRelay:
		return "relay"
	case TypeControl:
		return "control"
	default:
		return "unknown"
	}
}

// nextMessageID feeds diagnostic IDs; uniqueness within a process is
// all that is required of it.
var nextMessageID atomic.Uint64

// Message is a fixed-size envelope passed by value between threads.
// Queues copy envelopes in and out of their slots, so a Message is never
// shared after a push or pop.
type Message struct {
	ID    uint64
	Type  Type
	Flags uint32

	size    uint32
	content [MaxContentSize]byte
}

// NewMessage builds an envelope around content. Content larger than
// MaxContentSize is rejected, never truncated: the producer must decide
// how to split or shrink its payload.
func NewMessage(t Type, content []byte) (Message, error) {
	if len(content) > MaxContentSize {
		return Message{}, errors.WrapInvalid(errors.ErrInvalidArgument,
			"Message", "NewMessage", "content exceeds envelope capacity")
	}

	m := Message{
		ID:   nextMessageID.Add(1),
		Type: t,
		size: uint32(len(content)),
	}
	copy(m.content[:], content)
	return m, nil
}

// Content returns the payload. The returned slice aliases the message's
// own storage; callers that keep it past the message's lifetime must copy.
func (m *Message) Content() []byte {
	return m.content[:m.size]
}

// Size returns the payload length in bytes.
func (m *Message) Size() int {
	return int(m.size)
}
