// Package emit renders the assembly IR as AT&T-syntax text, branching once
// on target OS for section names, symbol prefixing, alignment directives,
// and the GNU-stack note. Target enum grounded on xyproto-vibe67's
// OS/ParseOS; per-function line walk grounded on iley-pirx's codegen
// Features{FuncLabelsUnderscore} switch.
package emit

import (
	"fmt"
	"strings"

	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/diag"
)

// OS is the closed set of target platforms this emitter knows how to
// address; spec.md names exactly these two (Non-goals exclude the rest of
// vibe67's broader Arch/OS matrix).
type OS int

const (
	Linux OS = iota
	MacOS
)

// ParseOS parses a target string (as accepted by --target / BCC_TARGET).
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "linux", "":
		return Linux, nil
	case "macos", "darwin":
		return MacOS, nil
	default:
		return 0, fmt.Errorf("unsupported target: %s (supported: linux, macos)", s)
	}
}

func (o OS) String() string {
	if o == MacOS {
		return "macos"
	}
	return "linux"
}

// symbol applies the target's name-mangling convention to a global symbol
// (function and top-level data names); local jump-target labels
// (L.<n>_<suffix>) are emitted verbatim regardless of target.
func (o OS) symbol(name string) string {
	if o == MacOS {
		return "_" + name
	}
	return name
}

func (o OS) align(b *strings.Builder, log2 int) {
	if o == MacOS {
		fmt.Fprintf(b, "\t.p2align %d\n", log2)
	} else {
		fmt.Fprintf(b, "\t.align %d\n", 1<<log2)
	}
}

// Program renders the full assembly IR for the given target.
func Program(prog *asm.Program, target OS) string {
	var b strings.Builder
	for _, g := range prog.Globals {
		writeGlobal(&b, g, target)
	}
	b.WriteString(textSection(target))
	for _, fn := range prog.Functions {
		writeFunction(&b, fn, target)
	}
	if target == Linux {
		b.WriteString("\t.section .note.GNU-stack,\"\",@progbits\n")
	}
	return b.String()
}

func dataSection(target OS) string {
	if target == MacOS {
		return "\t.section __DATA,__data\n"
	}
	return "\t.data\n"
}

func textSection(target OS) string {
	if target == MacOS {
		return "\t.section __TEXT,__text\n"
	}
	return "\t.text\n"
}

func writeGlobal(b *strings.Builder, g *asm.Global, target OS) {
	b.WriteString(dataSection(target))
	name := target.symbol(g.Name)
	if !g.IsStatic {
		fmt.Fprintf(b, "\t.globl %s\n", name)
	}
	target.align(b, alignLog2(g.Size))
	fmt.Fprintf(b, "%s:\n", name)
	init := int64(0)
	if g.Init != nil {
		init = *g.Init
	}
	if g.Size == 8 {
		fmt.Fprintf(b, "\t.quad %d\n", init)
	} else {
		fmt.Fprintf(b, "\t.long %d\n", init)
	}
}

func alignLog2(size int) int {
	log2 := 2
	if size == 8 {
		log2 = 3
	}
	if 1<<log2 > hostPageSize() {
		diag.Internal("global alignment %d exceeds host page size %d", 1<<log2, hostPageSize())
	}
	return log2
}

func writeFunction(b *strings.Builder, fn *asm.Function, target OS) {
	name := target.symbol(fn.Name)
	if !fn.IsStatic {
		fmt.Fprintf(b, "\t.globl %s\n", name)
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range fn.Lines {
		writeLine(b, line, target)
	}
}

func writeLine(b *strings.Builder, line asm.Line, target OS) {
	switch l := line.(type) {
	case asm.LabelLine:
		fmt.Fprintf(b, "%s:\n", l.Name)
	case asm.CommentLine:
		// never emitted to the final stream; --print-asm-ast uses the IR
		// dump instead, so comment lines are dropped here.
	case asm.Instr:
		fmt.Fprintf(b, "\t%s\n", instrText(l, target))
	}
}

// instrText renders one instruction, substituting the target's symbol
// mangling into Data operands and call labels (jump labels are local and
// stay verbatim) while leaving the asm package's own width-aware register
// rendering untouched.
func instrText(i asm.Instr, target OS) string {
	i.Src = mangleOperand(i.Src, target)
	i.Dst = mangleOperand(i.Dst, target)
	if i.Op == asm.OpCall {
		i.Label = target.symbol(i.Label)
	}
	return asm.RenderInstr(i)
}

func mangleOperand(o asm.Operand, target OS) asm.Operand {
	d, ok := o.(asm.Data)
	if !ok || target != MacOS {
		return o
	}
	return asm.Data{Label: "_" + d.Label}
}
