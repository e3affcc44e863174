package codegen

import (
	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/tac"
)

// runPassB walks every operand of every instruction, replacing each
// not-yet-seen pseudo-register with a stack slot (sized from the
// variable's TAC type) and each pseudo-register naming a global with a
// RIP-relative data reference (§4.4). fn.StackSize is set to the final
// (positive) frame size in bytes.
func runPassB(asmFn *asm.Function, tacFn *tac.Function, globals map[string]ast.CType) {
	offsets := map[string]int{}
	offset := 0

	assign := func(o asm.Operand) asm.Operand {
		p, ok := o.(asm.Pseudo)
		if !ok {
			return o
		}
		if _, isGlobal := globals[p.Name]; isGlobal {
			return asm.Data{Label: p.Name}
		}
		if off, seen := offsets[p.Name]; seen {
			return asm.Stack{Offset: off}
		}
		size := tacFn.VarTypes[p.Name].Size()
		offset -= size
		offsets[p.Name] = offset
		return asm.Stack{Offset: offset}
	}

	for idx, line := range asmFn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok {
			continue
		}
		if instr.Src != nil {
			instr.Src = assign(instr.Src)
		}
		if instr.Dst != nil {
			instr.Dst = assign(instr.Dst)
		}
		asmFn.Lines[idx] = instr
	}

	asmFn.StackSize = -offset
}
