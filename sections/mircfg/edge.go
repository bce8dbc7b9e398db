package mircfg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"ykcfg/mir"
)

// EdgeKind is the logical kind of a CFG edge.  Several wire tags map onto one
// kind, depending on which optional fields are present.
type EdgeKind uint8

// Enumeration of edge kinds.
const (
	KindGoto EdgeKind = iota
	KindSwitchInt
	KindResume
	KindAbort
	KindReturn
	KindUnreachable
	KindDrop
	KindDropAndReplace
	KindCall
	KindAssert
	KindYield
	KindGeneratorDrop
	KindFalseEdges
	KindFalseUnwind
	KindNoBody
)

var kindNames = [...]string{
	KindGoto:           "Goto",
	KindSwitchInt:      "SwitchInt",
	KindResume:         "Resume",
	KindAbort:          "Abort",
	KindReturn:         "Return",
	KindUnreachable:    "Unreachable",
	KindDrop:           "Drop",
	KindDropAndReplace: "DropAndReplace",
	KindCall:           "Call",
	KindAssert:         "Assert",
	KindYield:          "Yield",
	KindGeneratorDrop:  "GeneratorDrop",
	KindFalseEdges:     "FalseEdges",
	KindFalseUnwind:    "FalseUnwind",
	KindNoBody:         "NoBody",
}

func (k EdgeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("EdgeKind(%d)", uint8(k))
}

// Edge is one CFG record: the control transfer leaving the block at Src.
//
// Which payload fields are meaningful depends on Kind:
//   - Target is the primary successor of Goto, Drop, DropAndReplace, Assert,
//     Yield (its resume block), FalseEdges and FalseUnwind (their real target).
//   - Targets holds the successors of SwitchInt and the imaginary targets of
//     FalseEdges.
//   - Secondary is the optional unwind (Drop, DropAndReplace, FalseUnwind),
//     cleanup (Call, Assert) or drop (Yield) block.
//   - Callee is the statically known target of a Call; nil means unknown.
//
// For NoBody the block of Src is always 0 and is not encoded.
type Edge struct {
	Src       mir.Location
	Kind      EdgeKind
	Target    mir.BlockID
	Targets   []mir.BlockID
	Secondary *mir.BlockID
	Callee    *mir.DefID
}

// NoBodyEdge returns the record for a definition without a CFG.
func NoBodyEdge(def mir.DefID) Edge {
	return Edge{Src: mir.Location{Def: def}, Kind: KindNoBody}
}

// Tag returns the wire tag the edge is encoded with.
func (e Edge) Tag() (Tag, error) {
	hasSecondary := e.Secondary != nil

	switch e.Kind {
	case KindGoto:
		return TagGoto, nil
	case KindSwitchInt:
		return TagSwitchInt, nil
	case KindResume:
		return TagResume, nil
	case KindAbort:
		return TagAbort, nil
	case KindReturn:
		return TagReturn, nil
	case KindUnreachable:
		return TagUnreachable, nil
	case KindDrop:
		return pick(hasSecondary, TagDropWithUnwind, TagDropNoUnwind), nil
	case KindDropAndReplace:
		return pick(hasSecondary, TagDropAndReplaceWithUnwind, TagDropAndReplaceNoUnwind), nil
	case KindCall:
		if e.Callee != nil {
			return pick(hasSecondary, TagCallWithCleanup, TagCallNoCleanup), nil
		}

		return pick(hasSecondary, TagCallUnknownWithCleanup, TagCallUnknownNoCleanup), nil
	case KindAssert:
		return pick(hasSecondary, TagAssertWithCleanup, TagAssertNoCleanup), nil
	case KindYield:
		return pick(hasSecondary, TagYieldWithDrop, TagYieldNoDrop), nil
	case KindGeneratorDrop:
		return TagGeneratorDrop, nil
	case KindFalseEdges:
		return TagFalseEdges, nil
	case KindFalseUnwind:
		return pick(hasSecondary, TagFalseUnwindWithUnwind, TagFalseUnwindNoUnwind), nil
	case KindNoBody:
		return TagNoMir, nil
	}

	return 0, errors.Errorf("edge at %s has invalid kind %s", e.Src, e.Kind)
}

func pick(cond bool, yes, no Tag) Tag {
	if cond {
		return yes
	}

	return no
}

func (e Edge) String() string {
	sb := strings.Builder{}

	if e.Kind == KindNoBody {
		fmt.Fprintf(&sb, "%s %s", e.Kind, e.Src.Def)
		return sb.String()
	}

	fmt.Fprintf(&sb, "%s %s", e.Kind, e.Src)

	switch e.Kind {
	case KindGoto, KindDrop, KindDropAndReplace, KindAssert, KindYield, KindFalseUnwind:
		fmt.Fprintf(&sb, " -> bb%d", e.Target)
	case KindSwitchInt:
		sb.WriteString(" -> ")
		formatBlockList(&sb, e.Targets)
	case KindFalseEdges:
		fmt.Fprintf(&sb, " -> bb%d imaginary ", e.Target)
		formatBlockList(&sb, e.Targets)
	case KindCall:
		if e.Callee != nil {
			fmt.Fprintf(&sb, " -> %s", *e.Callee)
		} else {
			sb.WriteString(" -> ?")
		}
	}

	if e.Secondary != nil {
		fmt.Fprintf(&sb, " (bb%d)", *e.Secondary)
	}

	return sb.String()
}

func formatBlockList(sb *strings.Builder, blocks []mir.BlockID) {
	sb.WriteRune('[')

	for i, bb := range blocks {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(sb, "bb%d", bb)
	}

	sb.WriteRune(']')
}
