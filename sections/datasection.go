// Package sections builds and reads the raw byte streams stored in ykcfg's
// auxiliary object file sections.
package sections

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Layout describes how integers are laid out for the target: its byte order
// and the width of a pointer-sized integer.
type Layout struct {
	ByteOrder binary.ByteOrder

	// PointerWidth is the size of a `usize` in bytes: either 4 or 8.
	PointerWidth int
}

// Validate checks that the layout can be written.
func (l Layout) Validate() error {
	if l.ByteOrder == nil {
		return errors.New("layout has no byte order")
	}

	if l.PointerWidth != 4 && l.PointerWidth != 8 {
		return errors.Errorf("unsupported pointer width: %d", l.PointerWidth)
	}

	return nil
}

// -----------------------------------------------------------------------------

// DataSection is an append-only byte stream laid out for a target.  There are
// no back-references: a value once written is never changed.
type DataSection struct {
	layout Layout
	buf    []byte
}

// NewDataSection creates a new, empty data section.
func NewDataSection(layout Layout) *DataSection {
	return &DataSection{layout: layout}
}

// Layout returns the layout the section is written with.
func (ds *DataSection) Layout() Layout {
	return ds.layout
}

// WriteU8 appends a single byte.
func (ds *DataSection) WriteU8(v uint8) {
	ds.buf = append(ds.buf, v)
}

// WriteU32 appends a 4-byte integer.
func (ds *DataSection) WriteU32(v uint32) {
	var b [4]byte
	ds.layout.ByteOrder.PutUint32(b[:], v)
	ds.buf = append(ds.buf, b[:]...)
}

// WriteU64 appends an 8-byte integer.
func (ds *DataSection) WriteU64(v uint64) {
	var b [8]byte
	ds.layout.ByteOrder.PutUint64(b[:], v)
	ds.buf = append(ds.buf, b[:]...)
}

// WriteUsize appends a pointer-sized integer.  It panics if the value does not
// fit into a pointer on the target.
func (ds *DataSection) WriteUsize(v uint64) {
	if ds.layout.PointerWidth == 4 {
		if v > 0xffffffff {
			panic(fmt.Sprintf("usize value %d overflows a 32-bit target", v))
		}

		ds.WriteU32(uint32(v))
	} else {
		ds.WriteU64(v)
	}
}

// WriteString appends a NUL-terminated string.
func (ds *DataSection) WriteString(s string) {
	ds.buf = append(ds.buf, s...)
	ds.buf = append(ds.buf, 0)
}

// Append appends the contents of another section with the same layout.
func (ds *DataSection) Append(other *DataSection) {
	ds.buf = append(ds.buf, other.buf...)
}

// Len returns the number of bytes written so far.
func (ds *DataSection) Len() int {
	return len(ds.buf)
}

// Bytes returns a copy of the bytes written so far.
func (ds *DataSection) Bytes() []byte {
	out := make([]byte, len(ds.buf))
	copy(out, ds.buf)
	return out
}
