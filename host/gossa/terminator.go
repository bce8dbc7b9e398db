package gossa

import (
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"

	"ykcfg/mir"
)

// splitBlocks converts the blocks of fn, splitting every SSA block after each
// call so that the call ends a block of its own.  The pieces of an SSA block
// are numbered consecutively in SSA block order: SSA block i starts at
// heads[i], and the piece following its k-th call is heads[i]+k+1.  A call
// therefore always continues in the block numbered one past its own.
func (p *Provider) splitBlocks(fn *ssa.Function) ([]mir.Block, error) {
	heads := make([]mir.BlockID, len(fn.Blocks))

	next := mir.BlockID(0)
	for i, b := range fn.Blocks {
		heads[i] = next
		next++

		for _, instr := range b.Instrs {
			if _, ok := splitCall(instr); ok {
				next++
			}
		}
	}

	blocks := make([]mir.Block, 0, next)
	for i, b := range fn.Blocks {
		id := heads[i]

		for _, instr := range b.Instrs {
			if call, ok := splitCall(instr); ok {
				blocks = append(blocks, mir.Block{ID: id, Term: &mir.Call{Callee: p.callee(call)}})
				id++
			}
		}

		term, err := terminator(b, heads)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, mir.Block{ID: id, Term: term})
	}

	return blocks, nil
}

// splitCall returns the call an instruction makes if it ends a block.  Calls
// to builtins are not function calls and do not split blocks.
func splitCall(instr ssa.Instruction) (*ssa.Call, bool) {
	call, ok := instr.(*ssa.Call)
	if !ok {
		return nil, false
	}

	if _, builtin := call.Call.Value.(*ssa.Builtin); builtin {
		return nil, false
	}

	return call, true
}

// callee returns the definition a call statically targets, or nil for
// dynamic calls: interface methods and function values.
func (p *Provider) callee(call *ssa.Call) *mir.DefID {
	fn := call.Common().StaticCallee()
	if fn == nil {
		return nil
	}

	if id, ok := p.ids[fn]; ok {
		return &id
	}

	return nil
}

// terminator converts the control transfer ending an SSA block.  heads maps
// SSA block indices to the number of their first exported block.
func terminator(b *ssa.BasicBlock, heads []mir.BlockID) (mir.Terminator, error) {
	if len(b.Instrs) == 0 {
		return nil, errors.Errorf("block %d is empty", b.Index)
	}

	switch instr := b.Instrs[len(b.Instrs)-1].(type) {
	case *ssa.Jump:
		return &mir.Goto{Target: heads[b.Succs[0].Index]}, nil
	case *ssa.If:
		return &mir.SwitchInt{Targets: []mir.BlockID{
			heads[b.Succs[0].Index],
			heads[b.Succs[1].Index],
		}}, nil
	case *ssa.Return:
		return &mir.Return{}, nil
	case *ssa.Panic:
		return &mir.Abort{}, nil
	default:
		return nil, errors.Errorf("block %d ends in %T", b.Index, instr)
	}
}
