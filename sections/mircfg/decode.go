package mircfg

import (
	"github.com/pkg/errors"

	"ykcfg/mir"
	"ykcfg/sections"
)

// Decode parses a finished CFG section in one linear pass.  It is the
// reference consumer of the format: it fails on unknown tags, on truncated
// records, on a missing sentinel and on any bytes following the sentinel.
func Decode(data []byte, layout sections.Layout) ([]Edge, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	r := sections.NewReader(data, layout)
	var edges []Edge

	for {
		if r.Remaining() == 0 {
			return nil, errors.New("CFG section has no sentinel")
		}

		offset := r.Offset()
		tagByte, _ := r.ReadU8()
		tag := Tag(tagByte)

		if tag == TagSentinel {
			if r.Remaining() != 0 {
				return nil, errors.Errorf("%d trailing bytes after sentinel at offset %d", r.Remaining(), offset)
			}

			return edges, nil
		}

		e, err := readEdge(r, tag)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s record at offset %d", tag, offset)
		}

		edges = append(edges, e)
	}
}

// readEdge reads the payload of a record whose tag has already been consumed.
func readEdge(r *sections.Reader, tag Tag) (Edge, error) {
	if !tag.Valid() {
		return Edge{}, errors.Errorf("unknown tag %d", uint8(tag))
	}

	if tag == TagNoMir {
		def, err := readDef(r)
		if err != nil {
			return Edge{}, err
		}

		return NoBodyEdge(def), nil
	}

	src, err := readLocation(r)
	if err != nil {
		return Edge{}, err
	}

	e := Edge{Src: src}

	switch tag {
	case TagGoto:
		e.Kind = KindGoto
		err = readTarget(r, &e)
	case TagSwitchInt:
		e.Kind = KindSwitchInt
		e.Targets, err = readBlockList(r)
	case TagResume:
		e.Kind = KindResume
	case TagAbort:
		e.Kind = KindAbort
	case TagReturn:
		e.Kind = KindReturn
	case TagUnreachable:
		e.Kind = KindUnreachable
	case TagDropNoUnwind:
		e.Kind = KindDrop
		err = readTarget(r, &e)
	case TagDropWithUnwind:
		e.Kind = KindDrop
		err = readTargetAndSecondary(r, &e)
	case TagDropAndReplaceNoUnwind:
		e.Kind = KindDropAndReplace
		err = readTarget(r, &e)
	case TagDropAndReplaceWithUnwind:
		e.Kind = KindDropAndReplace
		err = readTargetAndSecondary(r, &e)
	case TagCallNoCleanup, TagCallWithCleanup:
		e.Kind = KindCall

		var callee mir.DefID
		if callee, err = readDef(r); err == nil {
			e.Callee = &callee

			if tag == TagCallWithCleanup {
				err = readSecondary(r, &e)
			}
		}
	case TagCallUnknownNoCleanup:
		e.Kind = KindCall
	case TagCallUnknownWithCleanup:
		e.Kind = KindCall
		err = readSecondary(r, &e)
	case TagAssertNoCleanup:
		e.Kind = KindAssert
		err = readTarget(r, &e)
	case TagAssertWithCleanup:
		e.Kind = KindAssert
		err = readTargetAndSecondary(r, &e)
	case TagYieldNoDrop:
		e.Kind = KindYield
		err = readTarget(r, &e)
	case TagYieldWithDrop:
		e.Kind = KindYield
		err = readTargetAndSecondary(r, &e)
	case TagGeneratorDrop:
		e.Kind = KindGeneratorDrop
	case TagFalseEdges:
		e.Kind = KindFalseEdges
		if err = readTarget(r, &e); err == nil {
			e.Targets, err = readBlockList(r)
		}
	case TagFalseUnwindNoUnwind:
		e.Kind = KindFalseUnwind
		err = readTarget(r, &e)
	case TagFalseUnwindWithUnwind:
		e.Kind = KindFalseUnwind
		err = readTargetAndSecondary(r, &e)
	}

	if err != nil {
		return Edge{}, err
	}

	return e, nil
}

func readDef(r *sections.Reader) (mir.DefID, error) {
	unit, err := r.ReadU64()
	if err != nil {
		return mir.DefID{}, err
	}

	index, err := r.ReadU32()
	if err != nil {
		return mir.DefID{}, err
	}

	return mir.DefID{Unit: mir.UnitID(unit), Index: mir.DefIndex(index)}, nil
}

func readLocation(r *sections.Reader) (mir.Location, error) {
	def, err := readDef(r)
	if err != nil {
		return mir.Location{}, err
	}

	bb, err := r.ReadU32()
	if err != nil {
		return mir.Location{}, err
	}

	return mir.Location{Def: def, Block: mir.BlockID(bb)}, nil
}

func readTarget(r *sections.Reader, e *Edge) error {
	bb, err := r.ReadU32()
	e.Target = mir.BlockID(bb)
	return err
}

func readSecondary(r *sections.Reader, e *Edge) error {
	bb, err := r.ReadU32()
	if err != nil {
		return err
	}

	e.Secondary = mir.BlockRef(mir.BlockID(bb))
	return nil
}

func readTargetAndSecondary(r *sections.Reader, e *Edge) error {
	if err := readTarget(r, e); err != nil {
		return err
	}

	return readSecondary(r, e)
}

func readBlockList(r *sections.Reader) ([]mir.BlockID, error) {
	n, err := r.ReadUsize()
	if err != nil {
		return nil, err
	}

	// reject lengths that cannot possibly fit before allocating for them
	if n > uint64(r.Remaining()/4) {
		return nil, errors.Wrapf(sections.ErrTruncated, "block list of length %d", n)
	}

	if n == 0 {
		return nil, nil
	}

	bbs := make([]mir.BlockID, n)
	for i := range bbs {
		bb, err := r.ReadU32()
		if err != nil {
			return nil, err
		}

		bbs[i] = mir.BlockID(bb)
	}

	return bbs, nil
}
