package mircfg

import (
	"fmt"

	"github.com/pkg/errors"

	"ykcfg/mir"
	"ykcfg/sections"
)

// UnsupportedTerminatorError is returned when a block ends in a terminator
// that has no wire encoding.  Such terminators are never dropped silently: the
// export fails instead.
type UnsupportedTerminatorError struct {
	Loc  mir.Location
	Term mir.Terminator
}

func (e *UnsupportedTerminatorError) Error() string {
	if e.Term == nil {
		return fmt.Sprintf("unsupported construct: block %s has no terminator", e.Loc)
	}

	return fmt.Sprintf("unsupported construct: cannot encode terminator %T of block %s", e.Term, e.Loc)
}

// Encode converts the terminator of the block at loc into its CFG edge.
func Encode(loc mir.Location, term mir.Terminator) (Edge, error) {
	e := Edge{Src: loc}

	switch t := term.(type) {
	case *mir.Goto:
		e.Kind = KindGoto
		e.Target = t.Target
	case *mir.SwitchInt:
		e.Kind = KindSwitchInt
		e.Targets = copyBlocks(t.Targets)
	case *mir.Resume:
		e.Kind = KindResume
	case *mir.Abort:
		e.Kind = KindAbort
	case *mir.Return:
		e.Kind = KindReturn
	case *mir.Unreachable:
		e.Kind = KindUnreachable
	case *mir.Drop:
		e.Kind = KindDrop
		e.Target = t.Target
		e.Secondary = copyBlock(t.Unwind)
	case *mir.DropAndReplace:
		e.Kind = KindDropAndReplace
		e.Target = t.Target
		e.Secondary = copyBlock(t.Unwind)
	case *mir.Call:
		e.Kind = KindCall
		e.Secondary = copyBlock(t.Cleanup)
		if t.Callee != nil {
			callee := *t.Callee
			e.Callee = &callee
		}
	case *mir.Assert:
		e.Kind = KindAssert
		e.Target = t.Target
		e.Secondary = copyBlock(t.Cleanup)
	case *mir.Yield:
		e.Kind = KindYield
		e.Target = t.Resume
		e.Secondary = copyBlock(t.Drop)
	case *mir.GeneratorDrop:
		e.Kind = KindGeneratorDrop
	case *mir.FalseEdges:
		e.Kind = KindFalseEdges
		e.Target = t.Real
		e.Targets = copyBlocks(t.Imaginary)
	case *mir.FalseUnwind:
		e.Kind = KindFalseUnwind
		e.Target = t.Real
		e.Secondary = copyBlock(t.Unwind)
	default:
		return Edge{}, &UnsupportedTerminatorError{Loc: loc, Term: term}
	}

	return e, nil
}

func copyBlock(bb *mir.BlockID) *mir.BlockID {
	if bb == nil {
		return nil
	}

	return mir.BlockRef(*bb)
}

// copyBlocks copies a list of targets so that the edge does not alias the
// host's IR.  Empty lists are normalized to nil.
func copyBlocks(bbs []mir.BlockID) []mir.BlockID {
	if len(bbs) == 0 {
		return nil
	}

	return append([]mir.BlockID(nil), bbs...)
}

// -----------------------------------------------------------------------------

// writeEdge appends the wire record for an edge to a data section.
func writeEdge(ds *sections.DataSection, e Edge) error {
	tag, err := e.Tag()
	if err != nil {
		return err
	}

	if err := checkPayload(tag, e); err != nil {
		return err
	}

	ds.WriteU8(uint8(tag))

	// NO_MIR: unit hash and definition index only
	if tag == TagNoMir {
		ds.WriteU64(uint64(e.Src.Def.Unit))
		ds.WriteU32(uint32(e.Src.Def.Index))
		return nil
	}

	// every other record starts with its full source location
	writeLocation(ds, e.Src)

	switch tag {
	case TagGoto, TagDropNoUnwind, TagDropAndReplaceNoUnwind, TagAssertNoCleanup,
		TagYieldNoDrop, TagFalseUnwindNoUnwind:
		ds.WriteU32(uint32(e.Target))
	case TagDropWithUnwind, TagDropAndReplaceWithUnwind, TagAssertWithCleanup,
		TagYieldWithDrop, TagFalseUnwindWithUnwind:
		ds.WriteU32(uint32(e.Target))
		ds.WriteU32(uint32(*e.Secondary))
	case TagSwitchInt:
		writeBlockList(ds, e.Targets)
	case TagFalseEdges:
		ds.WriteU32(uint32(e.Target))
		writeBlockList(ds, e.Targets)
	case TagCallNoCleanup:
		writeDef(ds, *e.Callee)
	case TagCallWithCleanup:
		writeDef(ds, *e.Callee)
		ds.WriteU32(uint32(*e.Secondary))
	case TagCallUnknownWithCleanup:
		ds.WriteU32(uint32(*e.Secondary))
	}

	return nil
}

// checkPayload rejects edges carrying fields their tag does not encode: such
// an edge could not be read back as it was pushed.
func checkPayload(tag Tag, e Edge) error {
	var usesTarget, usesTargets bool
	switch tag {
	case TagGoto, TagDropNoUnwind, TagDropWithUnwind, TagDropAndReplaceNoUnwind,
		TagDropAndReplaceWithUnwind, TagAssertNoCleanup, TagAssertWithCleanup,
		TagYieldNoDrop, TagYieldWithDrop, TagFalseUnwindNoUnwind, TagFalseUnwindWithUnwind:
		usesTarget = true
	case TagSwitchInt:
		usesTargets = true
	case TagFalseEdges:
		usesTarget, usesTargets = true, true
	}

	switch {
	case tag == TagNoMir && e.Src.Block != 0:
		return errors.Errorf("%s edge for %s names block bb%d", e.Kind, e.Src.Def, e.Src.Block)
	case !usesTarget && e.Target != 0:
		return errors.Errorf("%s edge at %s has a target", e.Kind, e.Src)
	case !usesTargets && len(e.Targets) != 0:
		return errors.Errorf("%s edge at %s has a target list", e.Kind, e.Src)
	case e.Kind != KindCall && e.Callee != nil:
		return errors.Errorf("%s edge at %s has a callee", e.Kind, e.Src)
	}

	// the tag of kinds with an optional block already records its presence
	if e.Secondary != nil {
		switch e.Kind {
		case KindDrop, KindDropAndReplace, KindCall, KindAssert, KindYield, KindFalseUnwind:
		default:
			return errors.Errorf("%s edge at %s has a secondary block", e.Kind, e.Src)
		}
	}

	return nil
}

func writeLocation(ds *sections.DataSection, loc mir.Location) {
	writeDef(ds, loc.Def)
	ds.WriteU32(uint32(loc.Block))
}

func writeDef(ds *sections.DataSection, def mir.DefID) {
	ds.WriteU64(uint64(def.Unit))
	ds.WriteU32(uint32(def.Index))
}

func writeBlockList(ds *sections.DataSection, bbs []mir.BlockID) {
	ds.WriteUsize(uint64(len(bbs)))

	for _, bb := range bbs {
		ds.WriteU32(uint32(bb))
	}
}
