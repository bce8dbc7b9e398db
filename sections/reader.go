package sections

import (
	"bytes"

	"github.com/pkg/errors"
)

// ErrTruncated is returned when a read runs past the end of a section.
var ErrTruncated = errors.New("section truncated")

// Reader reads values back out of a section in the order they were written.
type Reader struct {
	layout Layout
	data   []byte
	pos    int
}

// NewReader creates a reader over the raw bytes of a section.
func NewReader(data []byte, layout Layout) *Reader {
	return &Reader{layout: layout, data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, errors.Wrapf(ErrTruncated, "reading %d bytes at offset %d", n, r.pos)
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// ReadU32 reads a 4-byte integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return r.layout.ByteOrder.Uint32(b), nil
}

// ReadU64 reads an 8-byte integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}

	return r.layout.ByteOrder.Uint64(b), nil
}

// ReadUsize reads a pointer-sized integer.
func (r *Reader) ReadUsize() (uint64, error) {
	if r.layout.PointerWidth == 4 {
		v, err := r.ReadU32()
		return uint64(v), err
	}

	return r.ReadU64()
}

// ReadString reads a NUL-terminated string.
func (r *Reader) ReadString() (string, error) {
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		return "", errors.Wrapf(ErrTruncated, "unterminated string at offset %d", r.pos)
	}

	s := string(r.data[r.pos : r.pos+end])
	r.pos += end + 1
	return s, nil
}
