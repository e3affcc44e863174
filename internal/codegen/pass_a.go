package codegen

import (
	"fmt"

	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/ast"
	"github.com/annurdien/bcc/internal/tac"
)

// passACtx carries the per-function state Pass A needs: the source TAC
// program (for Value -> type lookups) and the function being expanded.
type passACtx struct {
	prog *tac.Program
	fn   *tac.Function
	out  *asm.Function
}

func runPassA(prog *tac.Program, fn *tac.Function) *asm.Function {
	c := &passACtx{prog: prog, fn: fn, out: &asm.Function{Name: fn.Name, IsStatic: fn.IsStatic}}
	c.emitParamMoves()
	for _, instr := range fn.Body {
		c.expand(instr)
	}
	return c.out
}

func (c *passACtx) line(l asm.Line) { c.out.Lines = append(c.out.Lines, l) }

func (c *passACtx) typeOf(v tac.Value) ast.CType { return c.prog.TypeOf(c.fn, v) }

func (c *passACtx) operand(v tac.Value) asm.Operand {
	switch vv := v.(type) {
	case tac.Constant:
		return asm.Imm{Value: vv.Value}
	case tac.Var:
		return asm.Pseudo{Name: vv.Name}
	}
	panic(fmt.Sprintf("codegen: unhandled tac.Value %T", v))
}

func (c *passACtx) mov(w asm.Width, src, dst asm.Operand) {
	c.line(asm.Instr{Op: asm.OpMov, Width: w, Src: src, Dst: dst})
}

// emitParamMoves moves the first six integer parameters out of their
// argument registers into their pseudo-registers, and loads the seventh
// and later from [rbp + 16 + 8*(i-6)] (§4.4).
func (c *passACtx) emitParamMoves() {
	for i, name := range c.fn.Params {
		w := widthOf(c.fn.VarTypes[name])
		dst := asm.Pseudo{Name: name}
		if reg, ok := sysV.IntegerArgReg(i); ok {
			c.mov(w, reg, dst)
			continue
		}
		off := 16 + 8*(i-len(asm.ArgRegs))
		c.mov(w, asm.Stack{Offset: off}, dst)
	}
}

func (c *passACtx) expand(instr tac.Instruction) {
	switch i := instr.(type) {
	case tac.Return:
		w := widthOf(c.typeOf(i.Val))
		c.mov(w, c.operand(i.Val), asm.RAX)
		c.line(asm.Instr{Op: asm.OpRet})
	case tac.Unary:
		c.expandUnary(i)
	case tac.Binary:
		c.expandBinary(i)
	case tac.Copy:
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Src), c.operand(i.Dest))
	case tac.SignExtend:
		c.line(asm.Instr{Op: asm.OpMovsx, Src: c.operand(i.Src), Dst: asm.R10})
		c.mov(asm.W64, asm.R10, c.operand(i.Dest))
	case tac.ZeroExtend:
		c.line(asm.Instr{Op: asm.OpMovzx, Src: c.operand(i.Src), Dst: asm.R10})
		c.mov(asm.W64, asm.R10, c.operand(i.Dest))
	case tac.Truncate:
		c.mov(asm.W32, c.operand(i.Src), c.operand(i.Dest))
	case tac.Jump:
		c.line(asm.Instr{Op: asm.OpJmp, Label: i.Label})
	case tac.JumpIfZero:
		w := widthOf(c.typeOf(i.Cond))
		c.line(asm.Instr{Op: asm.OpCmp, Width: w, Src: asm.Imm{Value: 0}, Dst: c.operand(i.Cond)})
		c.line(asm.Instr{Op: asm.OpJmpCC, Cond: asm.CCE, Label: i.Label})
	case tac.JumpIfNotZero:
		w := widthOf(c.typeOf(i.Cond))
		c.line(asm.Instr{Op: asm.OpCmp, Width: w, Src: asm.Imm{Value: 0}, Dst: c.operand(i.Cond)})
		c.line(asm.Instr{Op: asm.OpJmpCC, Cond: asm.CCNE, Label: i.Label})
	case tac.Label:
		c.line(asm.LabelLine{Name: i.Name})
	case tac.Call:
		c.expandCall(i)
	default:
		panic(fmt.Sprintf("codegen: unhandled tac instruction %T", instr))
	}
}

func (c *passACtx) expandUnary(i tac.Unary) {
	switch i.Op {
	case tac.OpNegate:
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Src), c.operand(i.Dest))
		c.line(asm.Instr{Op: asm.OpNeg, Width: w, Dst: c.operand(i.Dest)})
	case tac.OpComplement:
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Src), c.operand(i.Dest))
		c.line(asm.Instr{Op: asm.OpNot, Width: w, Dst: c.operand(i.Dest)})
	case tac.OpLogicalNot:
		w := widthOf(c.typeOf(i.Src))
		c.line(asm.Instr{Op: asm.OpCmp, Width: w, Src: asm.Imm{Value: 0}, Dst: c.operand(i.Src)})
		c.mov(asm.W32, asm.Imm{Value: 0}, c.operand(i.Dest))
		c.line(asm.Instr{Op: asm.OpSetCC, Cond: asm.CCE, Dst: c.operand(i.Dest)})
	}
}

// simpleBinOps maps the plain arithmetic/bitwise TAC ops to their x86
// two-operand opcode: `mov lhs, dest; op rhs, dest` (§4.4).
var simpleBinOps = map[tac.BinaryOp]asm.Opcode{
	tac.OpAdd: asm.OpAdd, tac.OpSubtract: asm.OpSub, tac.OpMultiply: asm.OpMul,
	tac.OpBitwiseAnd: asm.OpAnd, tac.OpBitwiseOr: asm.OpOr, tac.OpBitwiseXor: asm.OpXor,
}

var comparisonCC = map[tac.BinaryOp]asm.CondCode{
	tac.OpEqual: asm.CCE, tac.OpNotEqual: asm.CCNE,
	tac.OpLessThanS: asm.CCL, tac.OpLessThanU: asm.CCB,
	tac.OpLessThanOrEqualS: asm.CCLE, tac.OpLessThanOrEqualU: asm.CCBE,
	tac.OpGreaterThanS: asm.CCG, tac.OpGreaterThanU: asm.CCA,
	tac.OpGreaterThanOrEqualS: asm.CCGE, tac.OpGreaterThanOrEqualU: asm.CCAE,
}

func (c *passACtx) expandBinary(i tac.Binary) {
	if op, ok := simpleBinOps[i.Op]; ok {
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Lhs), c.operand(i.Dest))
		c.line(asm.Instr{Op: op, Width: w, Src: c.operand(i.Rhs), Dst: c.operand(i.Dest)})
		return
	}
	if cc, ok := comparisonCC[i.Op]; ok {
		w := widthOf(c.typeOf(i.Lhs))
		c.line(asm.Instr{Op: asm.OpCmp, Width: w, Src: c.operand(i.Rhs), Dst: c.operand(i.Lhs)})
		c.mov(asm.W32, asm.Imm{Value: 0}, c.operand(i.Dest))
		c.line(asm.Instr{Op: asm.OpSetCC, Cond: cc, Dst: c.operand(i.Dest)})
		return
	}
	switch i.Op {
	case tac.OpDivideS, tac.OpRemainderS:
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Lhs), asm.RAX)
		c.line(asm.Instr{Op: asm.OpCdq, Width: w})
		c.line(asm.Instr{Op: asm.OpIDiv, Width: w, Dst: c.operand(i.Rhs)})
		if i.Op == tac.OpDivideS {
			c.mov(w, asm.RAX, c.operand(i.Dest))
		} else {
			c.mov(w, asm.RDX, c.operand(i.Dest))
		}
	case tac.OpDivideU, tac.OpRemainderU:
		w := widthOf(c.typeOf(i.Dest))
		c.mov(w, c.operand(i.Lhs), asm.RAX)
		c.mov(w, asm.Imm{Value: 0}, asm.RDX)
		c.line(asm.Instr{Op: asm.OpDiv, Width: w, Dst: c.operand(i.Rhs)})
		if i.Op == tac.OpDivideU {
			c.mov(w, asm.RAX, c.operand(i.Dest))
		} else {
			c.mov(w, asm.RDX, c.operand(i.Dest))
		}
	case tac.OpShiftLeft, tac.OpShiftRightS, tac.OpShiftRightU:
		c.expandShift(i)
	default:
		panic(fmt.Sprintf("codegen: unhandled binary op %v", i.Op))
	}
}

func (c *passACtx) expandShift(i tac.Binary) {
	w := widthOf(c.typeOf(i.Dest))
	op := asm.OpSal
	switch i.Op {
	case tac.OpShiftRightS:
		op = asm.OpSarS
	case tac.OpShiftRightU:
		op = asm.OpSarU
	}
	c.mov(w, c.operand(i.Lhs), c.operand(i.Dest))
	if imm, ok := i.Rhs.(tac.Constant); ok {
		c.line(asm.Instr{Op: op, Width: w, Src: asm.Imm{Value: imm.Value}, Dst: c.operand(i.Dest)})
		return
	}
	c.mov(asm.W32, c.operand(i.Rhs), asm.RCX)
	c.line(asm.Instr{Op: op, Width: w, Src: asm.RCX, Dst: c.operand(i.Dest)})
}

// expandCall lowers a call per System V AMD64: first six integer args in
// registers, the rest pushed right-to-left on the stack with padding to
// keep %rsp 16-byte aligned at the call site (§4.4).
func (c *passACtx) expandCall(i tac.Call) {
	regArgs := i.Args
	var stackArgs []tac.Value
	if len(regArgs) > len(asm.ArgRegs) {
		stackArgs = regArgs[len(asm.ArgRegs):]
		regArgs = regArgs[:len(asm.ArgRegs)]
	}

	pad := len(stackArgs)%2 != 0
	if pad {
		c.line(asm.Instr{Op: asm.OpSub, Width: asm.W64, Src: asm.Imm{Value: 8}, Dst: asm.RSP})
	}
	for j := len(stackArgs) - 1; j >= 0; j-- {
		arg := stackArgs[j]
		w := widthOf(c.typeOf(arg))
		if w == asm.W32 {
			// Widen to 64 bits before pushing: pushq always moves 8 bytes.
			c.mov(asm.W32, c.operand(arg), asm.RAX)
			c.line(asm.Instr{Op: asm.OpPush, Width: asm.W64, Dst: asm.RAX})
		} else {
			c.line(asm.Instr{Op: asm.OpPush, Width: asm.W64, Dst: c.operand(arg)})
		}
	}
	for j, arg := range regArgs {
		w := widthOf(c.typeOf(arg))
		reg, _ := sysV.IntegerArgReg(j)
		c.mov(w, c.operand(arg), reg)
	}
	c.line(asm.Instr{Op: asm.OpCall, Label: i.Name})

	stackBytes := 8 * len(stackArgs)
	if pad {
		stackBytes += 8
	}
	if stackBytes > 0 {
		c.line(asm.Instr{Op: asm.OpAdd, Width: asm.W64, Src: asm.Imm{Value: int64(stackBytes)}, Dst: asm.RSP})
	}
	w := widthOf(c.typeOf(i.Dest))
	c.mov(w, sysV.IntegerReturnReg(), c.operand(i.Dest))
}
