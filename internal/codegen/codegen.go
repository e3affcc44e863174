package codegen

import (
	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/tac"
)

// Generate lowers a TAC program into the assembly IR through Pass A
// (template expansion), Pass B (stack-slot assignment), and Pass C
// (prologue/epilogue plus legalization). Deterministic: well-typed TAC
// cannot fail this pass (§4.4).
func Generate(prog *tac.Program) *asm.Program {
	out := &asm.Program{}
	globalTypes := map[string]ast.CType{}
	for _, g := range prog.Globals {
		globalTypes[g.Name] = g.Type
		out.Globals = append(out.Globals, &asm.Global{
			Name: g.Name, Size: g.Type.Size(), Init: g.Init, IsStatic: g.IsStatic,
		})
	}

	for _, fn := range prog.Functions {
		asmFn := runPassA(prog, fn)
		runPassB(asmFn, fn, globalTypes)
		runPassC(asmFn)
		out.Functions = append(out.Functions, asmFn)
	}
	return out
}

func widthOf(t ast.CType) asm.Width {
	if t.Size() == 8 {
		return asm.W64
	}
	return asm.W32
}
