package chunk

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/mogaika/assetrename/utils"

	"github.com/pkg/errors"
)

// Writer builds a chunk stream in memory. Chunk sizes are patched in when
// the chunk is closed, so nesting is just BeginChunk/EndChunk pairs.
type Writer struct {
	buf   bytes.Buffer
	order binary.ByteOrder
	style StringStyle
	open  []int
}

func NewWriter(order binary.ByteOrder, style StringStyle) *Writer {
	return &Writer{order: order, style: style}
}

func (w *Writer) Order() binary.ByteOrder { return w.order }

func (w *Writer) Style() StringStyle { return w.style }

func (w *Writer) SetStyle(style StringStyle) { w.style = style }

func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// PutString writes a body string using the writer's string style.
func (w *Writer) PutString(s string) error {
	return w.PutStringStyle(s, w.style)
}

func (w *Writer) PutStringStyle(s string, style StringStyle) error {
	raw, err := utils.EncodeString(s)
	if err != nil {
		return errors.Wrapf(ErrInvalidString, "%v", err)
	}
	switch style {
	case StringLengthPrefixed:
		w.Uint32(uint32(len(raw)))
		w.buf.Write(raw)
	case StringNewline, StringNull:
		if bytes.IndexByte(raw, style.terminator()) >= 0 {
			return errors.Wrapf(ErrInvalidString, "%q contains the %v terminator", s, style)
		}
		w.buf.Write(raw)
		w.buf.WriteByte(style.terminator())
	default:
		return errors.Errorf("Unknown string style %v", style)
	}
	return nil
}

func (w *Writer) BeginChunk(id uint16) {
	w.open = append(w.open, w.buf.Len())
	w.Uint16(id)
	w.Uint32(0)
}

func (w *Writer) EndChunk() error {
	if len(w.open) == 0 {
		return errors.New("EndChunk without BeginChunk")
	}
	start := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]

	size := w.buf.Len() - start
	if int64(size) > math.MaxUint32 {
		return errors.Errorf("chunk at 0x%x is too big: 0x%x", start, size)
	}
	w.order.PutUint32(w.buf.Bytes()[start+2:start+HeaderSize], uint32(size))
	return nil
}

func (w *Writer) WriteRaw(raw *Raw) error {
	w.BeginChunk(raw.ID)
	w.buf.Write(raw.Payload)
	return w.EndChunk()
}

// Bytes returns the finished stream. All chunks must be closed.
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.open) != 0 {
		return nil, errors.Errorf("%d chunks are still open", len(w.open))
	}
	return w.buf.Bytes(), nil
}

// WriteArray writes values of T in the writer's byte order.
func WriteArray[T Primitive](w *Writer, values []T) {
	if err := binary.Write(&w.buf, w.order, values); err != nil {
		// bytes.Buffer does not fail and T is fixed size
		panic(err)
	}
}
