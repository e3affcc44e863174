package asm

import "testing"

func TestCdqWidthPicksCqoForQuadwordDivide(t *testing.T) {
	cases := []struct {
		w    Width
		want string
	}{
		{W32, "cdq"},
		{W64, "cqo"},
	}
	for _, c := range cases {
		got := RenderInstr(Instr{Op: OpCdq, Width: c.w})
		if got != c.want {
			t.Errorf("width %v: got %q, want %q", c.w, got, c.want)
		}
	}
}

func TestShiftByRegisterUsesClRegardlessOfWidth(t *testing.T) {
	cases := []struct {
		op   Opcode
		w    Width
		want string
	}{
		{OpSal, W32, "sall %cl, %eax"},
		{OpSal, W64, "salq %cl, %rax"},
		{OpSarS, W64, "sarq %cl, %rax"},
		{OpSarU, W32, "shrl %cl, %eax"},
	}
	for _, c := range cases {
		got := RenderInstr(Instr{Op: c.op, Width: c.w, Src: RCX, Dst: RAX})
		if got != c.want {
			t.Errorf("op %v width %v: got %q, want %q", Mnemonic(c.op), c.w, got, c.want)
		}
	}
}

func TestShiftByImmediateIsUnaffected(t *testing.T) {
	got := RenderInstr(Instr{Op: OpSal, Width: W64, Src: Imm{Value: 3}, Dst: RAX})
	want := "salq $3, %rax"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
