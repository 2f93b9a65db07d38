package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mogaika/assetrename/utils"

	"github.com/pkg/errors"
)

// Reader is a bounded cursor over a chunk payload. Nested chunks get their
// own Reader limited to the parent's payload, so a child can never read
// past the end of the chunk that contains it.
type Reader struct {
	parent *Reader
	buf    []byte
	pos    int
	offset int // absolute offset of buf[0] in the stream
	kind   string

	order binary.ByteOrder
	style StringStyle
}

func NewReader(kind string, data []byte, order binary.ByteOrder, style StringStyle) *Reader {
	return &Reader{
		buf:   data,
		kind:  kind,
		order: order,
		style: style,
	}
}

func (r *Reader) Order() binary.ByteOrder { return r.order }

func (r *Reader) Style() StringStyle { return r.style }

// SetStyle changes the string style for this reader and every reader nested
// below it that is created afterwards.
func (r *Reader) SetStyle(style StringStyle) { r.style = style }

func (r *Reader) Pos() int { return r.pos }

func (r *Reader) Len() int { return len(r.buf) }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) EOF() bool { return r.pos >= len(r.buf) }

func (r *Reader) String() string {
	return fmt.Sprintf("buf<%v>[o:0x%x,s:0x%x,p:0x%x]", r.kind, r.offset, len(r.buf), r.pos)
}

func (r *Reader) StringChain() string {
	s := r.String()
	if r.parent != nil {
		s += "::" + r.parent.StringChain()
	}
	return s
}

func (r *Reader) truncated(want int) error {
	return errors.Wrapf(ErrTruncatedChunk, "need 0x%x bytes at 0x%x, have 0x%x in %s",
		want, r.offset+r.pos, r.Remaining(), r.StringChain())
}

// Read returns the next n bytes without copying.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r.truncated(n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Rest consumes and copies whatever is left of the reader, nil when empty.
func (r *Reader) Rest() []byte {
	if r.EOF() {
		return nil
	}
	b, _ := r.Read(r.Remaining())
	return append([]byte(nil), b...)
}

func (r *Reader) Skip(n int) error {
	_, err := r.Read(n)
	return err
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Bool accepts only 0 and 1, anything else could not be written back.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Read(1)
	if err != nil {
		return false, err
	}
	if b[0] > 1 {
		return false, errors.Wrapf(ErrInvalidBool, "byte 0x%.2x at 0x%x in %s", b[0], r.offset+r.pos-1, r.StringChain())
	}
	return b[0] == 1, nil
}

func (r *Reader) PeekByte() (byte, error) {
	if r.EOF() {
		return 0, r.truncated(1)
	}
	return r.buf[r.pos], nil
}

// ReadString reads a body string using the reader's string style.
func (r *Reader) ReadString() (string, error) {
	return r.ReadStringStyle(r.style)
}

func (r *Reader) ReadStringStyle(style StringStyle) (string, error) {
	var raw []byte
	switch style {
	case StringLengthPrefixed:
		l, err := r.Uint32()
		if err != nil {
			return "", err
		}
		if raw, err = r.Read(int(l)); err != nil {
			return "", err
		}
	case StringNewline, StringNull:
		n := bytes.IndexByte(r.buf[r.pos:], style.terminator())
		if n < 0 {
			return "", errors.Wrapf(ErrTruncatedChunk, "unterminated %v string at 0x%x in %s",
				style, r.offset+r.pos, r.StringChain())
		}
		raw = r.buf[r.pos : r.pos+n]
		r.pos += n + 1
	default:
		return "", errors.Errorf("Unknown string style %v", style)
	}
	return utils.DecodeString(raw)
}

// PeekID returns the id of the next chunk without consuming it.
func (r *Reader) PeekID() (uint16, bool) {
	if r.Remaining() < 2 {
		return 0, false
	}
	return r.order.Uint16(r.buf[r.pos:]), true
}

// ReadChunkHeader reads a chunk header and checks that the whole chunk fits
// inside this reader.
func (r *Reader) ReadChunkHeader() (Header, error) {
	start := r.pos
	var h Header
	var err error
	if h.ID, err = r.Uint16(); err != nil {
		return h, err
	}
	if h.Size, err = r.Uint32(); err != nil {
		return h, err
	}
	if h.Size < HeaderSize {
		return h, errors.Wrapf(ErrTruncatedChunk, "%v at 0x%x is smaller than its header in %s",
			h, r.offset+start, r.StringChain())
	}
	if int64(h.Size) > int64(len(r.buf)-start) {
		return h, errors.Wrapf(ErrTruncatedChunk, "%v at 0x%x overruns its parent end 0x%x in %s",
			h, r.offset+start, r.offset+len(r.buf), r.StringChain())
	}
	return h, nil
}

// Sub consumes the payload of a chunk whose header was just read and returns
// a reader bounded to it.
func (r *Reader) Sub(kind string, h Header) (*Reader, error) {
	start := r.pos
	payload, err := r.Read(h.PayloadSize())
	if err != nil {
		return nil, err
	}
	return &Reader{
		parent: r,
		buf:    payload,
		offset: r.offset + start,
		kind:   kind,
		order:  r.order,
		style:  r.style,
	}, nil
}

// ReadChunk reads a header and returns the bounded payload reader.
func (r *Reader) ReadChunk(kind string) (Header, *Reader, error) {
	h, err := r.ReadChunkHeader()
	if err != nil {
		return h, nil, err
	}
	sub, err := r.Sub(kind, h)
	return h, sub, err
}

// ReadRaw captures the payload of a chunk whose header was just read.
func (r *Reader) ReadRaw(h Header) (*Raw, error) {
	payload, err := r.Read(h.PayloadSize())
	if err != nil {
		return nil, err
	}
	return &Raw{ID: h.ID, Payload: append([]byte(nil), payload...)}, nil
}

// Primitive lists the fixed size types ReadArray and WriteArray accept.
type Primitive interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// ReadArray reads count values of T in the reader's byte order.
func ReadArray[T Primitive](r *Reader, count int) ([]T, error) {
	var zero T
	size := binary.Size(zero)
	if count < 0 || count > r.Remaining()/size {
		return nil, r.truncated(count * size)
	}
	raw, err := r.Read(count * size)
	if err != nil {
		return nil, err
	}
	out := make([]T, count)
	if err := binary.Read(bytes.NewReader(raw), r.order, out); err != nil {
		return nil, errors.Wrapf(err, "Cannot decode array of %d elements", count)
	}
	return out, nil
}
