// Package chunk implements the self-describing chunk framing shared by every
// asset revision: uint16 id, uint32 size (header included), payload.
package chunk

import (
	"fmt"

	"github.com/pkg/errors"
)

const HeaderSize = 6

var (
	ErrTruncatedChunk = errors.New("truncated chunk")
	ErrInvalidString  = errors.New("invalid string")
	ErrInvalidBool    = errors.New("invalid bool")
)

type Header struct {
	ID   uint16
	Size uint32
}

func (h Header) PayloadSize() int {
	return int(h.Size) - HeaderSize
}

func (h Header) String() string {
	return fmt.Sprintf("chunk<0x%.4x>[s:0x%x]", h.ID, h.Size)
}

// Element is one entry of a chunk sequence. Models keep their chunks as
// ordered []Element so unknown chunks stay at their original position.
type Element interface {
	ChunkID() uint16
}

// Raw is a chunk whose structure is not understood. It is written back
// exactly as it was read.
type Raw struct {
	ID      uint16
	Payload []byte
}

func (r *Raw) ChunkID() uint16 { return r.ID }

func (r *Raw) String() string {
	return fmt.Sprintf("raw<0x%.4x>[s:0x%x]", r.ID, len(r.Payload))
}

// StringStyle selects how a revision terminates strings inside chunk bodies.
type StringStyle int

const (
	StringNewline StringStyle = iota
	StringNull
	StringLengthPrefixed
)

func (s StringStyle) String() string {
	switch s {
	case StringNewline:
		return "newline"
	case StringNull:
		return "null"
	case StringLengthPrefixed:
		return "length-prefixed"
	default:
		return fmt.Sprintf("StringStyle(%d)", int(s))
	}
}

func (s StringStyle) terminator() byte {
	if s == StringNewline {
		return '\n'
	}
	return 0
}
