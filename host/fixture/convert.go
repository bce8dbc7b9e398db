package fixture

import (
	"github.com/pkg/errors"

	"ykcfg/mir"
)

// convertBlock builds the terminator described by a block.  It also returns
// the callee of a call to a known definition.
func convertBlock(unitHashes map[string]mir.UnitID, bs BlockSpec, numBlocks int) (mir.Terminator, *mir.DefID, error) {
	c := &blockChecker{numBlocks: numBlocks, used: make(map[string]bool)}

	var term mir.Terminator
	var callee *mir.DefID

	switch bs.Kind {
	case KindGoto:
		term = &mir.Goto{Target: c.required("target", bs.Target)}
	case KindSwitchInt:
		term = &mir.SwitchInt{Targets: c.list("targets", bs.Targets)}
	case KindResume:
		term = &mir.Resume{}
	case KindAbort:
		term = &mir.Abort{}
	case KindReturn:
		term = &mir.Return{}
	case KindUnreachable:
		term = &mir.Unreachable{}
	case KindDrop:
		term = &mir.Drop{Target: c.required("target", bs.Target), Unwind: c.optional("unwind", bs.Unwind)}
	case KindDropAndReplace:
		term = &mir.DropAndReplace{Target: c.required("target", bs.Target), Unwind: c.optional("unwind", bs.Unwind)}
	case KindCall:
		c.used["callee"] = true
		if bs.Callee != nil {
			unit, ok := unitHashes[bs.Callee.Unit]
			if !ok {
				return nil, nil, errors.Errorf("callee in undeclared unit `%s`", bs.Callee.Unit)
			}

			callee = &mir.DefID{Unit: unit, Index: mir.DefIndex(bs.Callee.Index)}
		}

		term = &mir.Call{Callee: callee, Cleanup: c.optional("cleanup", bs.Cleanup)}
	case KindAssert:
		term = &mir.Assert{Target: c.required("target", bs.Target), Cleanup: c.optional("cleanup", bs.Cleanup)}
	case KindYield:
		term = &mir.Yield{Resume: c.required("target", bs.Target), Drop: c.optional("drop", bs.Drop)}
	case KindGeneratorDrop:
		term = &mir.GeneratorDrop{}
	case KindFalseEdges:
		term = &mir.FalseEdges{Real: c.required("target", bs.Target), Imaginary: c.list("imaginary", bs.Imaginary)}
	case KindFalseUnwind:
		term = &mir.FalseUnwind{Real: c.required("target", bs.Target), Unwind: c.optional("unwind", bs.Unwind)}
	default:
		return nil, nil, errors.New("block has no kind")
	}

	if c.err != nil {
		return nil, nil, c.err
	}

	// fields the kind does not read are rejected like unknown keys
	for _, field := range presentFields(bs) {
		if !c.used[field] {
			return nil, nil, errors.Errorf("field %s does not apply to a %s block", field, bs.Kind)
		}
	}

	return term, callee, nil
}

// presentFields lists the optional fields set in a block spec.
func presentFields(bs BlockSpec) []string {
	var fields []string
	add := func(field string, present bool) {
		if present {
			fields = append(fields, field)
		}
	}

	add("target", bs.Target != nil)
	add("targets", bs.Targets != nil)
	add("unwind", bs.Unwind != nil)
	add("cleanup", bs.Cleanup != nil)
	add("drop", bs.Drop != nil)
	add("callee", bs.Callee != nil)
	add("imaginary", bs.Imaginary != nil)

	return fields
}

// blockChecker validates the block references of one block and keeps the
// first problem found.
type blockChecker struct {
	numBlocks int
	used      map[string]bool
	err       error
}

func (c *blockChecker) check(field string, bb uint32) mir.BlockID {
	if int64(bb) >= int64(c.numBlocks) && c.err == nil {
		c.err = errors.Errorf("%s refers to bb%d but there are only %d blocks", field, bb, c.numBlocks)
	}

	return mir.BlockID(bb)
}

func (c *blockChecker) required(field string, bb *uint32) mir.BlockID {
	c.used[field] = true
	if bb == nil {
		if c.err == nil {
			c.err = errors.Errorf("missing %s", field)
		}

		return 0
	}

	return c.check(field, *bb)
}

func (c *blockChecker) optional(field string, bb *uint32) *mir.BlockID {
	c.used[field] = true
	if bb == nil {
		return nil
	}

	return mir.BlockRef(c.check(field, *bb))
}

func (c *blockChecker) list(field string, bbs []uint32) []mir.BlockID {
	c.used[field] = true
	var ids []mir.BlockID
	for _, bb := range bbs {
		ids = append(ids, c.check(field, bb))
	}

	return ids
}
