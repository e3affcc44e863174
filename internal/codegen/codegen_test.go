package codegen

import (
	"testing"

	"github.com/annurdien/bcc/internal/asm"
	"github.com/annurdien/bcc/internal/lexer"
	"github.com/annurdien/bcc/internal/parser"
	"github.com/annurdien/bcc/internal/tac"
)

func compileToAsm(t *testing.T, src string) *asm.Program {
	t.Helper()
	toks, err := lexer.All(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tacProg, err := tac.Generate(prog)
	if err != nil {
		t.Fatalf("tac error: %v", err)
	}
	return Generate(tacProg)
}

// TestStackFrameIsMultipleOf16 covers spec §8 Property 10.
func TestStackFrameIsMultipleOf16(t *testing.T) {
	prog := compileToAsm(t, "int main(void) { int a; int b; int c; return a+b+c; }")
	for _, fn := range prog.Functions {
		if fn.StackSize%16 != 0 {
			t.Errorf("function %s stack size %d is not a multiple of 16", fn.Name, fn.StackSize)
		}
	}
}

// TestEveryRetHasMatchingEpilogue covers the other half of Property 10.
func TestEveryRetHasMatchingEpilogue(t *testing.T) {
	prog := compileToAsm(t, "int main(void) { return 0; }")
	fn := prog.Functions[0]
	for i, line := range fn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok || instr.Op != asm.OpRet {
			continue
		}
		if i < 2 {
			t.Fatalf("ret at index %d has no room for an epilogue before it", i)
			continue
		}
		pop, ok := fn.Lines[i-1].(asm.Instr)
		if !ok || pop.Op != asm.OpPop {
			t.Errorf("instruction before ret is %+v, want pop", fn.Lines[i-1])
		}
		mov, ok := fn.Lines[i-2].(asm.Instr)
		if !ok || mov.Op != asm.OpMov || mov.Src != asm.RBP || mov.Dst != asm.RSP {
			t.Errorf("two instructions before ret is %+v, want movq rbp, rsp", fn.Lines[i-2])
		}
	}
}

// TestNoIllegalOperandForms covers spec §8 Property 9.
func TestNoIllegalOperandForms(t *testing.T) {
	prog := compileToAsm(t, `
		long g = 5000000000;
		int f(int a, int b, int c, int d, int e, int f, int g, int h) { return a+h; }
		int main(void) {
			int a; int b; int c;
			a = b + c;
			if (a < b) { a = g; }
			return f(1,2,3,4,5,6,7,8);
		}
	`)
	for _, fn := range prog.Functions {
		for _, line := range fn.Lines {
			instr, ok := line.(asm.Instr)
			if !ok {
				continue
			}
			if isMem(instr.Src) && isMem(instr.Dst) {
				t.Errorf("function %s: instruction %+v has two memory operands", fn.Name, instr)
			}
			if instr.Op == asm.OpCmp {
				if _, ok := isImm(instr.Dst); ok {
					t.Errorf("function %s: cmp %+v has an immediate destination", fn.Name, instr)
				}
			}
			if instr.Op == asm.OpIDiv || instr.Op == asm.OpDiv {
				if _, ok := isImm(instr.Dst); ok {
					t.Errorf("function %s: div/idiv %+v has an immediate operand", fn.Name, instr)
				}
			}
			if imm, ok := isImm(instr.Src); ok && instr.Width == asm.W64 && !fitsSigned32(imm.Value) {
				if instr.Op != asm.OpMov || isMem(instr.Dst) {
					t.Errorf("function %s: instruction %+v carries an illegal 64-bit immediate", fn.Name, instr)
				}
			}
		}
	}
}

// TestCallSiteRemainsAligned covers spec §8 Property 8: every stack-arg
// push sequence is padded so %rsp stays 16-byte aligned at `call`.
func TestCallSiteRemainsAligned(t *testing.T) {
	prog := compileToAsm(t, `
		int sum8(int a, int b, int c, int d, int e, int f, int g, int h) { return a; }
		int main(void) { return sum8(1,2,3,4,5,6,7,8); }
	`)
	var mainFn *asm.Function
	for _, fn := range prog.Functions {
		if fn.Name == "main" {
			mainFn = fn
		}
	}
	if mainFn == nil {
		t.Fatal("main not found")
	}
	// Two stack args (7th, 8th) -> even count -> no padding subtract needed.
	// Sum everything below main's caller's aligned %rsp: the 8-byte return
	// address pushed by that caller's `call`, then every `push` and
	// `sub $N, %rsp` in main (prologue and call site), and verify the total
	// is a multiple of 16.
	pushed := 8
	for _, line := range mainFn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok {
			continue
		}
		if instr.Op == asm.OpPush {
			pushed += 8
		}
		if instr.Op == asm.OpSub {
			if imm, ok := isImm(instr.Src); ok && instr.Dst == asm.RSP {
				pushed += int(imm.Value)
			}
		}
	}
	if pushed%16 != 0 {
		t.Errorf("total bytes pushed before call (%d) is not 16-byte aligned", pushed)
	}
}

// TestLongSignedDivideSignExtendsToRdx covers spec §3.4/§4.4: a 64-bit
// signed divide must sign-extend through %rdx via cqo, not the 32-bit cdq.
func TestLongSignedDivideSignExtendsToRdx(t *testing.T) {
	prog := compileToAsm(t, "long quot(long a, long b) { return a / b; }")
	fn := prog.Functions[0]
	var sawCqo, sawIdivq bool
	for _, line := range fn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok {
			continue
		}
		if instr.Op == asm.OpCdq && instr.Width == asm.W64 {
			sawCqo = true
		}
		if instr.Op == asm.OpIDiv && instr.Width == asm.W64 {
			sawIdivq = true
		}
	}
	if !sawCqo {
		t.Errorf("expected a width-64 Cdq instruction (renders as cqo) before idivq")
	}
	if !sawIdivq {
		t.Errorf("expected a width-64 idiv instruction")
	}
}

// TestVariableShiftCountUsesRegisterCount covers spec §4.4: a non-constant
// shift amount must be moved through %ecx/%cl, never shifted at the
// destination's own width.
func TestVariableShiftCountUsesRegisterCount(t *testing.T) {
	prog := compileToAsm(t, "long shl(long a, int b) { return a << b; }")
	fn := prog.Functions[0]
	var sawShift bool
	for _, line := range fn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok || instr.Op != asm.OpSal {
			continue
		}
		sawShift = true
		if instr.Src != asm.RCX {
			t.Errorf("shift count operand = %+v, want %%cl (asm.RCX)", instr.Src)
		}
	}
	if !sawShift {
		t.Fatalf("expected a Sal instruction for the variable shift")
	}
}

func TestParameterWidthsUseCorrectWidth(t *testing.T) {
	prog := compileToAsm(t, "long addone(long x) { return x + 1; }")
	fn := prog.Functions[0]
	var found bool
	for _, line := range fn.Lines {
		instr, ok := line.(asm.Instr)
		if !ok || instr.Op != asm.OpMov {
			continue
		}
		if instr.Src == asm.RDI && instr.Width == asm.W64 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 64-bit move of the long parameter out of %%rdi")
	}
}
