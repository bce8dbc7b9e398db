package mircfg

import (
	"github.com/pkg/errors"

	"ykcfg/sections"
)

// ErrFinished is returned when a builder is used after Finish.
var ErrFinished = errors.New("CFG section already finished")

// Builder accumulates encoded CFG records into a single section.  Records are
// encoded as soon as they are pushed; nothing is reordered, merged or
// deduplicated.
type Builder struct {
	ds       *sections.DataSection
	records  int
	finished bool

	// fragment builders are created by Fork: they can be joined into their
	// parent but never finished themselves
	fragment bool
}

// NewBuilder begins a new CFG section laid out for the given target.
func NewBuilder(layout sections.Layout) (*Builder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	return &Builder{ds: sections.NewDataSection(layout)}, nil
}

// Push encodes an edge and appends it to the section.
func (b *Builder) Push(e Edge) error {
	if b.finished {
		return ErrFinished
	}

	if err := writeEdge(b.ds, e); err != nil {
		return err
	}

	b.records++
	return nil
}

// Records returns the number of records pushed so far (including those of
// joined fragments).
func (b *Builder) Records() int {
	return b.records
}

// Fork creates an empty fragment with the same layout.  Fragments are used to
// encode definitions concurrently: each worker fills its own fragment and the
// fragments are then joined back in a fixed order.
func (b *Builder) Fork() *Builder {
	return &Builder{
		ds:       sections.NewDataSection(b.ds.Layout()),
		fragment: true,
	}
}

// Join appends the records of a fragment created by Fork.  The fragment must
// not be used afterwards.
func (b *Builder) Join(frag *Builder) error {
	if b.finished {
		return ErrFinished
	}

	if !frag.fragment || frag.finished {
		return errors.New("only unused fragments created by Fork can be joined")
	}

	if frag.ds.Layout() != b.ds.Layout() {
		return errors.New("cannot join a fragment with a different layout")
	}

	b.ds.Append(frag.ds)
	b.records += frag.records
	frag.finished = true
	return nil
}

// Finish appends the sentinel and returns the finished section.  A builder can
// only be finished once.
func (b *Builder) Finish() ([]byte, error) {
	if b.finished {
		return nil, ErrFinished
	}

	if b.fragment {
		return nil, errors.New("a fragment must be joined, not finished")
	}

	b.ds.WriteU8(uint8(TagSentinel))
	b.finished = true
	return b.ds.Bytes(), nil
}
