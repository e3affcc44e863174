// Package tac defines the three-address intermediate representation that
// sits between the AST and the assembly generator: a flat instruction list
// with explicit labels and jumps, no SSA, no phi nodes, no basic blocks.
package tac

import (
	"fmt"
	"strings"

	"github.com/annurdien/bcc/internal/ast"
)

// Program is the whole compilation unit lowered to TAC: an ordered list of
// globals followed by an ordered list of functions.
type Program struct {
	Globals   []*Global
	Functions []*Function
}

// Global is a file-scope variable: a name, type, optional constant
// initializer, and linkage flag. Init is nil for a zero-initialized global.
type Global struct {
	Name     string
	Type     ast.CType
	Init     *int64
	IsStatic bool
}

// Function is a lowered function body: its parameter list, a map from
// every local/temporary/parameter name appearing in Body to its TAC type,
// and the flat instruction list. IsStatic mirrors internal (file-local)
// linkage; bodyless prototypes are not lowered and never appear here.
type Function struct {
	Name       string
	Params     []string
	ReturnType ast.CType
	VarTypes   map[string]ast.CType
	Body       []Instruction
	IsStatic   bool
}

// Value is either a Constant or a named Var (temporary, local, or global —
// all TAC variables are uniquely named after name resolution).
type Value interface{ isValue() }

type Constant struct {
	Type  ast.CType
	Value int64
}

func (Constant) isValue() {}

type Var struct{ Name string }

func (Var) isValue() {}

func (v Constant) String() string { return fmt.Sprintf("%d", v.Value) }
func (v Var) String() string      { return v.Name }

// UnaryOp is the closed set of TAC unary operators.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpComplement
	OpLogicalNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "negate"
	case OpComplement:
		return "complement"
	case OpLogicalNot:
		return "logicalNot"
	}
	return "?"
}

// BinaryOp is the closed set of TAC binary operators, with signedness
// split out for the operations where it changes the generated instruction:
// divide, remainder, shiftRight, and the four relational comparisons
// (<, <=, >, >=).
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivideS
	OpDivideU
	OpRemainderS
	OpRemainderU
	OpShiftLeft
	OpShiftRightS
	OpShiftRightU
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpEqual
	OpNotEqual
	OpLessThanS
	OpLessThanU
	OpLessThanOrEqualS
	OpLessThanOrEqualU
	OpGreaterThanS
	OpGreaterThanU
	OpGreaterThanOrEqualS
	OpGreaterThanOrEqualU
)

var binOpNames = map[BinaryOp]string{
	OpAdd: "add", OpSubtract: "subtract", OpMultiply: "multiply",
	OpDivideS: "divideS", OpDivideU: "divideU",
	OpRemainderS: "remainderS", OpRemainderU: "remainderU",
	OpShiftLeft: "shiftLeft", OpShiftRightS: "shiftRightS", OpShiftRightU: "shiftRightU",
	OpBitwiseAnd: "bitwiseAnd", OpBitwiseOr: "bitwiseOr", OpBitwiseXor: "bitwiseXor",
	OpEqual: "equal", OpNotEqual: "notEqual",
	OpLessThanS: "lessThanS", OpLessThanU: "lessThanU",
	OpLessThanOrEqualS: "lessThanOrEqualS", OpLessThanOrEqualU: "lessThanOrEqualU",
	OpGreaterThanS: "greaterThanS", OpGreaterThanU: "greaterThanU",
	OpGreaterThanOrEqualS: "greaterThanOrEqualS", OpGreaterThanOrEqualU: "greaterThanOrEqualU",
}

func (op BinaryOp) String() string {
	if n, ok := binOpNames[op]; ok {
		return n
	}
	return "?"
}

// Instruction is the closed set of TAC instructions.
type Instruction interface{ isInstruction() }

type Return struct{ Val Value }
type Unary struct {
	Op   UnaryOp
	Src  Value
	Dest Value
}
type Binary struct {
	Op   BinaryOp
	Lhs  Value
	Rhs  Value
	Dest Value
}

// Copy is a plain move at Dest's width; it does not convert between
// widths. The generator emits it only when Src and Dest have the same
// width and lowers mismatched widths through SignExtend/ZeroExtend or
// Truncate instead (§4.3 / §4.5).
type Copy struct {
	Src  Value
	Dest Value
}

// SignExtend/ZeroExtend widen Src into a wider Dest; Truncate narrows Src
// into a smaller Dest. These are the dedicated widening instructions the
// assembly generator needs to avoid a lossy general-purpose mov when
// crossing the 4-byte/8-byte boundary (§4.5, §9 open question #2).
type SignExtend struct {
	Src  Value
	Dest Value
}
type ZeroExtend struct {
	Src  Value
	Dest Value
}
type Truncate struct {
	Src  Value
	Dest Value
}

type Jump struct{ Label string }
type JumpIfZero struct {
	Cond  Value
	Label string
}
type JumpIfNotZero struct {
	Cond  Value
	Label string
}
type Label struct{ Name string }
type Call struct {
	Name string
	Args []Value
	Dest Value
}

func (Return) isInstruction()        {}
func (Unary) isInstruction()         {}
func (Binary) isInstruction()        {}
func (Copy) isInstruction()          {}
func (SignExtend) isInstruction()    {}
func (ZeroExtend) isInstruction()    {}
func (Truncate) isInstruction()      {}
func (Jump) isInstruction()          {}
func (JumpIfZero) isInstruction()    {}
func (JumpIfNotZero) isInstruction() {}
func (Label) isInstruction()         {}
func (Call) isInstruction()          {}

// TypeOf resolves the TAC type of a Value within fn, falling back to the
// program's global table for names fn does not own (rewritten statics and
// plain globals referenced by the function).
func (p *Program) TypeOf(fn *Function, v Value) ast.CType {
	switch vv := v.(type) {
	case Constant:
		return vv.Type
	case Var:
		if t, ok := fn.VarTypes[vv.Name]; ok {
			return t
		}
		for _, g := range p.Globals {
			if g.Name == vv.Name {
				return g.Type
			}
		}
	}
	return ast.TInt
}

// String renders the program in the debug-dump format grounded on
// DQNEO-8cc.go/debug.go's per-node String() dumper, used by --print-tacky.
func (p *Program) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		if g.IsStatic {
			b.WriteString("static ")
		}
		fmt.Fprintf(&b, "global %s: %s", g.Name, g.Type)
		if g.Init != nil {
			fmt.Fprintf(&b, " = %d", *g.Init)
		}
		b.WriteString("\n")
	}
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "function %s(%s) -> %s:\n", fn.Name, strings.Join(fn.Params, ", "), fn.ReturnType)
		for _, instr := range fn.Body {
			fmt.Fprintf(&b, "  %s\n", instructionString(instr))
		}
	}
	return b.String()
}

func instructionString(instr Instruction) string {
	switch i := instr.(type) {
	case Return:
		return fmt.Sprintf("return %v", i.Val)
	case Unary:
		return fmt.Sprintf("%v = %s %v", i.Dest, i.Op, i.Src)
	case Binary:
		return fmt.Sprintf("%v = %v %s %v", i.Dest, i.Lhs, i.Op, i.Rhs)
	case Copy:
		return fmt.Sprintf("%v = copy %v", i.Dest, i.Src)
	case SignExtend:
		return fmt.Sprintf("%v = signExtend %v", i.Dest, i.Src)
	case ZeroExtend:
		return fmt.Sprintf("%v = zeroExtend %v", i.Dest, i.Src)
	case Truncate:
		return fmt.Sprintf("%v = truncate %v", i.Dest, i.Src)
	case Jump:
		return fmt.Sprintf("jump %s", i.Label)
	case JumpIfZero:
		return fmt.Sprintf("jumpIfZero %v, %s", i.Cond, i.Label)
	case JumpIfNotZero:
		return fmt.Sprintf("jumpIfNotZero %v, %s", i.Cond, i.Label)
	case Label:
		return fmt.Sprintf("%s:", i.Name)
	case Call:
		args := make([]string, len(i.Args))
		for j, a := range i.Args {
			args[j] = fmt.Sprintf("%v", a)
		}
		return fmt.Sprintf("%v = call %s(%s)", i.Dest, i.Name, strings.Join(args, ", "))
	}
	return "?"
}
