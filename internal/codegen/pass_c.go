package codegen

import "github.com/annurdien/bcc/internal/asm"

// roundUp16 rounds n up to the next multiple of 16 (frame-size alignment).
func roundUp16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// runPassC prepends the prologue, expands every ret into the matching
// epilogue, and legalizes operand-class violations through the %r10/%r11
// scratch registers (§4.4).
func runPassC(fn *asm.Function) {
	frame := roundUp16(fn.StackSize)

	var body []asm.Line
	for _, line := range fn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok {
			body = append(body, line)
			continue
		}
		if instr.Op == asm.OpRet {
			body = append(body,
				asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: asm.RBP, Dst: asm.RSP},
				asm.Instr{Op: asm.OpPop, Width: asm.W64, Dst: asm.RBP},
				asm.Instr{Op: asm.OpRet},
			)
			continue
		}
		body = append(body, legalize(instr)...)
	}

	prologue := []asm.Line{
		asm.Instr{Op: asm.OpPush, Width: asm.W64, Dst: asm.RBP},
		asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: asm.RSP, Dst: asm.RBP},
	}
	if frame > 0 {
		prologue = append(prologue, asm.Instr{Op: asm.OpSub, Width: asm.W64, Src: asm.Imm{Value: int64(frame)}, Dst: asm.RSP})
	}

	fn.Lines = append(prologue, body...)
	fn.StackSize = frame
}

func isMem(o asm.Operand) bool {
	switch o.(type) {
	case asm.Stack, asm.Data:
		return true
	}
	return false
}

func isImm(o asm.Operand) (asm.Imm, bool) {
	imm, ok := o.(asm.Imm)
	return imm, ok
}

func fitsSigned32(v int64) bool {
	return v >= -(1<<31) && v <= (1<<31)-1
}

// legalize rewrites one instruction into a legal sequence, routing
// offending operands through %r10/%r10d (and %r11/%r11d when a second
// scratch is needed) per §4.4's table. The two scratch registers are
// never reused for both the source-load and the destination-of-two-mem
// fixups of the same instruction.
func legalize(instr asm.Instr) []asm.Line {
	switch instr.Op {
	case asm.OpMov:
		if isMem(instr.Src) && isMem(instr.Dst) {
			return []asm.Line{
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: instr.Src, Dst: asm.R10},
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: asm.R10, Dst: instr.Dst},
			}
		}
		if imm, ok := isImm(instr.Src); ok && instr.Width == asm.W64 && isMem(instr.Dst) && !fitsSigned32(imm.Value) {
			return []asm.Line{
				asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: imm, Dst: asm.R10},
				asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: asm.R10, Dst: instr.Dst},
			}
		}
		return []asm.Line{instr}

	case asm.OpAdd, asm.OpSub, asm.OpAnd, asm.OpOr, asm.OpXor:
		if isMem(instr.Src) && isMem(instr.Dst) {
			return []asm.Line{
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: instr.Src, Dst: asm.R10},
				asm.Instr{Op: instr.Op, Width: instr.Width, Src: asm.R10, Dst: instr.Dst},
			}
		}
		if imm, ok := isImm(instr.Src); ok && instr.Width == asm.W64 && !fitsSigned32(imm.Value) {
			return []asm.Line{
				asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: imm, Dst: asm.R10},
				asm.Instr{Op: instr.Op, Width: instr.Width, Src: asm.R10, Dst: instr.Dst},
			}
		}
		return []asm.Line{instr}

	case asm.OpMul:
		var out []asm.Line
		src, dst := instr.Src, instr.Dst
		if imm, ok := isImm(src); ok && instr.Width == asm.W64 && !fitsSigned32(imm.Value) {
			out = append(out, asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: imm, Dst: asm.R11})
			src = asm.R11
		}
		if isMem(dst) {
			out = append(out,
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: dst, Dst: asm.R10},
				asm.Instr{Op: asm.OpMul, Width: instr.Width, Src: src, Dst: asm.R10},
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: asm.R10, Dst: dst},
			)
			return out
		}
		out = append(out, asm.Instr{Op: asm.OpMul, Width: instr.Width, Src: src, Dst: dst})
		return out

	case asm.OpCmp:
		src, dst := instr.Src, instr.Dst
		var out []asm.Line
		if isMem(src) && isMem(dst) {
			out = append(out, asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: src, Dst: asm.R10})
			src = asm.R10
		} else if imm, ok := isImm(src); ok && instr.Width == asm.W64 && !fitsSigned32(imm.Value) {
			out = append(out, asm.Instr{Op: asm.OpMov, Width: asm.W64, Src: imm, Dst: asm.R11})
			src = asm.R11
		}
		if imm, ok := isImm(dst); ok {
			out = append(out, asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: imm, Dst: asm.R10})
			dst = asm.R10
		}
		out = append(out, asm.Instr{Op: asm.OpCmp, Width: instr.Width, Src: src, Dst: dst})
		return out

	case asm.OpIDiv, asm.OpDiv:
		if imm, ok := isImm(instr.Dst); ok {
			return []asm.Line{
				asm.Instr{Op: asm.OpMov, Width: instr.Width, Src: imm, Dst: asm.R10},
				asm.Instr{Op: instr.Op, Width: instr.Width, Dst: asm.R10},
			}
		}
		return []asm.Line{instr}

	default:
		return []asm.Line{instr}
	}
}
