// Package format resolves which revision and byte order a file was written
// with, and reads and writes the file header that carries them.
package format

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/mogaika/assetrename/chunk"

	"github.com/pkg/errors"
)

const HeaderChunkID = 0x1000

// labels are shorter than this, so a little endian length prefix never
// starts with '['
const maxLabelLength = 64

var ErrMalformedHeader = errors.New("malformed header")

var NativeOrder binary.ByteOrder = nativeOrder()

func nativeOrder() binary.ByteOrder {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Other returns the opposite byte order.
func Other(order binary.ByteOrder) binary.ByteOrder {
	if order == binary.BigEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func ParseOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	case "native", "":
		return NativeOrder, nil
	}
	return nil, errors.Errorf("Unknown byte order %q", s)
}

func OrderName(order binary.ByteOrder) string {
	switch order {
	case binary.LittleEndian:
		return "little"
	case binary.BigEndian:
		return "big"
	}
	return "unknown"
}

type Resolution struct {
	Revision *Revision
	Order    binary.ByteOrder
}

// Resolve inspects the header at the start of rs. A nil forced order tries
// the native order first and then the other one. The stream is rewound to
// offset 0 afterwards.
func Resolve(rs io.ReadSeeker, forced binary.ByteOrder) (Resolution, error) {
	var res Resolution
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return res, errors.Wrapf(err, "Cannot seek to header")
	}

	var head [2 + 4 + maxLabelLength]byte
	n, err := io.ReadFull(rs, head[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return res, errors.Wrapf(ErrMalformedHeader, "empty file")
		}
		return res, errors.Wrapf(err, "Cannot read header")
	}
	if n < 2 {
		return res, errors.Wrapf(ErrMalformedHeader, "file is %d bytes long", n)
	}

	order, err := detectOrder(head[:2], forced)
	if err != nil {
		return res, err
	}

	rev, err := ReadHeader(chunk.NewReader("header", head[:n], order, chunk.StringNull))
	if err != nil {
		return res, err
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return res, errors.Wrapf(err, "Cannot rewind after header")
	}
	return Resolution{Revision: rev, Order: order}, nil
}

func detectOrder(tag []byte, forced binary.ByteOrder) (binary.ByteOrder, error) {
	candidates := []binary.ByteOrder{NativeOrder, Other(NativeOrder)}
	if forced != nil {
		candidates = []binary.ByteOrder{forced}
	}
	for _, order := range candidates {
		if order.Uint16(tag) == HeaderChunkID {
			return order, nil
		}
	}
	return nil, errors.Wrapf(ErrMalformedHeader, "header tag %.2x %.2x is not 0x%.4x", tag[0], tag[1], HeaderChunkID)
}

// ReadHeader reads the header tag and version label from r and switches r
// to the revision's string style.
func ReadHeader(r *chunk.Reader) (*Revision, error) {
	tag, err := r.Uint16()
	if err != nil || tag != HeaderChunkID {
		return nil, errors.Wrapf(ErrMalformedHeader, "header tag 0x%.4x", tag)
	}

	label, style, err := readLabel(r)
	if err != nil {
		return nil, err
	}

	rev, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	// the label is written back in the revision's style only
	if style != rev.Strings {
		return nil, errors.Wrapf(ErrMalformedHeader, "%q label stored as %v string, want %v", label, style, rev.Strings)
	}
	r.SetStyle(rev.Strings)
	return rev, nil
}

func readLabel(r *chunk.Reader) (string, chunk.StringStyle, error) {
	first, err := r.PeekByte()
	if err != nil {
		return "", 0, errors.Wrapf(ErrMalformedHeader, "no version label")
	}

	if first != '[' {
		l, err := r.Uint32()
		if err != nil || l == 0 || l >= maxLabelLength {
			return "", 0, errors.Wrapf(ErrMalformedHeader, "bad version label length %d", l)
		}
		b, err := r.Read(int(l))
		if err != nil {
			return "", 0, errors.Wrapf(ErrMalformedHeader, "version label: %v", err)
		}
		return string(b), chunk.StringLengthPrefixed, nil
	}

	var label []byte
	for len(label) < maxLabelLength {
		b, err := r.Read(1)
		if err != nil {
			return "", 0, errors.Wrapf(ErrMalformedHeader, "unterminated version label %q", label)
		}
		switch b[0] {
		case '\n':
			return string(label), chunk.StringNewline, nil
		case 0:
			return string(label), chunk.StringNull, nil
		}
		label = append(label, b[0])
	}
	return "", 0, errors.Wrapf(ErrMalformedHeader, "version label longer than %d bytes", maxLabelLength)
}

// WriteHeader writes the header tag and the label in the revision's own
// string style.
func WriteHeader(w *chunk.Writer, rev *Revision) error {
	w.Uint16(HeaderChunkID)
	w.SetStyle(rev.Strings)
	return w.PutString(rev.Label)
}
