// Package asm defines the x86-64 assembly intermediate representation
// produced by the assembly generator and consumed by the emitter: a
// program of functions and globals, each function an ordered line list
// over a closed operand/instruction variant set. Shape grounded on
// iley-pirx's x86_64 codegen package (Op0/Op1/Op2, Reg/Imm/Label
// constructors).
package asm

import (
	"fmt"
	"strings"
)

// Width distinguishes the 4-byte and 8-byte instruction forms; the
// mnemonic suffix (`l`/`q`) and register name width are derived from it
// at emission time rather than carried as a string on every instruction.
type Width int

const (
	W32 Width = 4
	W64 Width = 8
)

func (w Width) Suffix() string {
	if w == W64 {
		return "q"
	}
	return "l"
}

// Operand is the closed set of assembly operand variants.
type Operand interface{ isOperand() }

// Imm is an immediate constant.
type Imm struct{ Value int64 }

func (Imm) isOperand() {}

// Reg names a hardware register by a width-neutral base name (e.g. "ax",
// "r10"); callers pick the width-appropriate alias via Reg.At(w).
type Reg struct{ Name string }

func (Reg) isOperand() {}

// Pseudo is a virtual register standing in for a TAC variable before
// Pass B assigns it a stack slot.
type Pseudo struct{ Name string }

func (Pseudo) isOperand() {}

// Stack is a signed byte offset from %rbp, assigned by Pass B.
type Stack struct{ Offset int }

func (Stack) isOperand() {}

// Data is a RIP-relative reference to a named global.
type Data struct{ Label string }

func (Data) isOperand() {}

// Indirect is register-indirect addressing, [Reg]. Unused by the current
// lowering (no pointers/arrays) but kept in the operand set per the
// assembly IR's closed variant list (§3.4) for a future addressing mode.
type Indirect struct{ Base Reg }

func (Indirect) isOperand() {}

var regAliases = map[string][3]string{
	"ax": {"al", "eax", "rax"}, "cx": {"cl", "ecx", "rcx"},
	"dx": {"dl", "edx", "rdx"}, "di": {"dil", "edi", "rdi"},
	"si": {"sil", "esi", "rsi"}, "r8": {"r8b", "r8d", "r8"},
	"r9": {"r9b", "r9d", "r9"}, "r10": {"r10b", "r10d", "r10"},
	"r11": {"r11b", "r11d", "r11"}, "bp": {"bpl", "ebp", "rbp"},
	"sp": {"spl", "esp", "rsp"},
}

// At renders the register at the given width ("%eax" vs "%rax").
func (r Reg) At(w Width) string {
	alias, ok := regAliases[r.Name]
	if !ok {
		return "%" + r.Name
	}
	if w == W64 {
		return "%" + alias[2]
	}
	return "%" + alias[1]
}

// Byte renders the 8-bit alias, used by setCC destinations.
func (r Reg) Byte() string {
	if alias, ok := regAliases[r.Name]; ok {
		return "%" + alias[0]
	}
	return "%" + r.Name
}

var (
	RAX = Reg{"ax"}
	RCX = Reg{"cx"}
	RDX = Reg{"dx"}
	RDI = Reg{"di"}
	RSI = Reg{"si"}
	R8  = Reg{"r8"}
	R9  = Reg{"r9"}
	R10 = Reg{"r10"}
	R11 = Reg{"r11"}
	RBP = Reg{"bp"}
	RSP = Reg{"sp"}
)

// ArgRegs is the System V AMD64 integer argument register order.
var ArgRegs = [6]Reg{RDI, RSI, RDX, RCX, R8, R9}

// CondCode is the closed set of x86 condition codes used by setCC/jCC.
type CondCode int

const (
	CCE CondCode = iota
	CCNE
	CCL
	CCLE
	CCG
	CCGE
	CCB
	CCBE
	CCA
	CCAE
)

func (c CondCode) String() string {
	switch c {
	case CCE:
		return "e"
	case CCNE:
		return "ne"
	case CCL:
		return "l"
	case CCLE:
		return "le"
	case CCG:
		return "g"
	case CCGE:
		return "ge"
	case CCB:
		return "b"
	case CCBE:
		return "be"
	case CCA:
		return "a"
	case CCAE:
		return "ae"
	}
	return "?"
}

// Line is one line of a function body: an instruction, a label, or a
// comment (the Comment variant exists for --print-asm-ast readability,
// never emitted to the final assembly stream).
type Line interface{ isLine() }

type LabelLine struct{ Name string }

func (LabelLine) isLine() {}

type CommentLine struct{ Text string }

func (CommentLine) isLine() {}

// Instr is every mnemonic in spec.md's table, keyed by opcode plus an
// explicit Width rather than one Go type per mnemonic — matching
// iley-pirx's Op0/Op1/Op2 shape, generalized with a Width field since
// this ISA subset needs both 32- and 64-bit forms of most opcodes.
type Instr struct {
	Op    Opcode
	Width Width
	Cond  CondCode // only meaningful for SetCC/JmpCC
	Dst   Operand
	Src   Operand // nil for unary/zero-operand forms
	Label string   // only meaningful for Jmp/JmpCC/Call
}

func (Instr) isLine() {}

type Opcode int

const (
	OpMov Opcode = iota
	OpMovsx // sign-extending mov (movslq etc.)
	OpMovzx // zero-extending mov
	OpAdd
	OpSub
	OpMul  // imul
	OpIDiv // signed divide
	OpDiv  // unsigned divide
	OpCdq  // sign-extend eax/rax into edx:eax / rdx:rax
	OpCmp
	OpNeg
	OpNot
	OpAnd
	OpOr
	OpXor
	OpSal
	OpSarS // arithmetic (signed) right shift
	OpSarU // logical (unsigned) right shift, i.e. shr
	OpPush
	OpPop
	OpSetCC
	OpJmp
	OpJmpCC
	OpCall
	OpRet
)

var mnemonics = map[Opcode]string{
	OpMov: "mov", OpMovsx: "movs", OpMovzx: "movz", OpAdd: "add", OpSub: "sub",
	OpMul: "imul", OpIDiv: "idiv", OpDiv: "div", OpCdq: "cdq", OpCmp: "cmp",
	OpNeg: "neg", OpNot: "not", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpSal: "sal", OpSarS: "sar", OpSarU: "shr", OpPush: "push", OpPop: "pop",
	OpSetCC: "set", OpJmp: "jmp", OpJmpCC: "j", OpCall: "call", OpRet: "ret",
}

// Function is one lowered function body: its label, line list, and the
// byte size of its stack frame (filled in by Pass B/C).
type Function struct {
	Name      string
	Lines     []Line
	StackSize int
	IsStatic  bool
}

// Global is a file-scope datum: Linux/macOS section placement and
// .globl/static linkage are resolved by the emitter, not here.
type Global struct {
	Name     string
	Size     int // 4 or 8
	Init     *int64
	IsStatic bool
}

type Program struct {
	Globals   []*Global
	Functions []*Function
}

func (p *Program) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&b, "global %s (size %d)", g.Name, g.Size)
		if g.Init != nil {
			fmt.Fprintf(&b, " = %d", *g.Init)
		}
		b.WriteString("\n")
	}
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "function %s (stack=%d):\n", fn.Name, fn.StackSize)
		for _, line := range fn.Lines {
			fmt.Fprintf(&b, "  %s\n", lineString(line))
		}
	}
	return b.String()
}

func lineString(l Line) string {
	switch ln := l.(type) {
	case LabelLine:
		return ln.Name + ":"
	case CommentLine:
		return "# " + ln.Text
	case Instr:
		return instrString(ln)
	}
	return "?"
}

// renderAt formats an operand for the given width: register operands pick
// the matching alias (%eax vs %rax); every other operand kind is
// width-independent (a memory address doesn't encode the size of the
// access) and falls back to its plain String().
func renderAt(o Operand, w Width) string {
	if r, ok := o.(Reg); ok {
		return r.At(w)
	}
	return fmt.Sprintf("%v", o)
}

// renderByte formats an operand as an 8-bit destination, for setCC.
func renderByte(o Operand) string {
	if r, ok := o.(Reg); ok {
		return r.Byte()
	}
	return fmt.Sprintf("%v", o)
}

func instrString(i Instr) string {
	name := mnemonics[i.Op]
	switch i.Op {
	case OpSetCC:
		return fmt.Sprintf("set%s %s", i.Cond, renderByte(i.Dst))
	case OpJmpCC:
		return fmt.Sprintf("j%s %s", i.Cond, i.Label)
	case OpJmp:
		return fmt.Sprintf("jmp %s", i.Label)
	case OpCall:
		return fmt.Sprintf("call %s", i.Label)
	case OpRet:
		return name
	case OpCdq:
		if i.Width == W64 {
			return "cqo"
		}
		return "cdq"
	case OpMovsx:
		return fmt.Sprintf("movslq %s, %s", renderAt(i.Src, W32), renderAt(i.Dst, W64))
	case OpMovzx:
		return fmt.Sprintf("movl %s, %s", renderAt(i.Src, W32), renderAt(i.Dst, W32))
	case OpSal, OpSarS, OpSarU:
		suffix := i.Width.Suffix()
		return fmt.Sprintf("%s%s %s, %s", name, suffix, renderShiftCount(i.Src), renderAt(i.Dst, i.Width))
	}
	suffix := i.Width.Suffix()
	if i.Src == nil {
		return fmt.Sprintf("%s%s %s", name, suffix, renderAt(i.Dst, i.Width))
	}
	return fmt.Sprintf("%s%s %s, %s", name, suffix, renderAt(i.Src, i.Width), renderAt(i.Dst, i.Width))
}

// renderShiftCount formats a shift instruction's count operand: a register
// count must be the 8-bit %cl alias regardless of the shift's own width
// (x86 shift-by-register only accepts %cl); an immediate count is
// width-independent and renders as-is.
func renderShiftCount(o Operand) string {
	if r, ok := o.(Reg); ok {
		return r.Byte()
	}
	return fmt.Sprintf("%v", o)
}

func (o Imm) String() string      { return fmt.Sprintf("$%d", o.Value) }
func (o Reg) String() string      { return o.At(W64) }
func (o Pseudo) String() string   { return "%" + o.Name }
func (o Stack) String() string    { return fmt.Sprintf("%d(%%rbp)", o.Offset) }
func (o Data) String() string     { return o.Label + "(%rip)" }
func (o Indirect) String() string { return fmt.Sprintf("(%s)", o.Base) }

// Mnemonic exposes the textual mnemonic for an opcode (used by the
// emitter, which otherwise never reaches into this package's internals).
func Mnemonic(op Opcode) string { return mnemonics[op] }

// RenderInstr exposes instrString for the emitter, which needs the exact
// same width-aware mnemonic/operand rendering but first rewrites Data
// operands and Call labels with the target's symbol-mangling convention.
func RenderInstr(i Instr) string { return instrString(i) }
